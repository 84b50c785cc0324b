package duplicates

import (
	"context"
	"path"
	"sort"
	"strings"
	"testing"

	"github.com/panbanda/sift/pkg/analyzer/facts"
	"github.com/panbanda/sift/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(files map[string]string) Input {
	var in Input
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		content := []byte(files[name])
		in.Files = append(in.Files, File{RelPath: name, Ext: path.Ext(name), Content: content})
		if facts.IsManifest(name) {
			in.Manifests = append(in.Manifests, facts.ParseManifest(name, content))
		}
	}
	return in
}

func detect(t *testing.T, files map[string]string, opts ...Option) *Analysis {
	t.Helper()
	analysis, err := New(opts...).Detect(context.Background(), input(files))
	require.NoError(t, err)
	return analysis
}

func TestNew(t *testing.T) {
	d := New()
	assert.Equal(t, DefaultConfig(), d.Config())

	d = New(WithMinBlockLines(3), WithSimilarityThreshold(0.9))
	assert.Equal(t, 3, d.Config().MinBlockLines)
	assert.InDelta(t, 0.9, d.Config().SimilarityThreshold, 1e-9)

	d = New(WithMinBlockLines(0), WithSimilarityThreshold(1.5))
	assert.Equal(t, DefaultConfig(), d.Config())

	d = New(WithThresholds(config.ThresholdConfig{
		MinBlockLines:           7,
		MaxFunctionLines:        50,
		MinSignatureTokens:      4,
		NearDuplicateSimilarity: 0.6,
	}))
	assert.Equal(t, 7, d.Config().MinBlockLines)
	assert.Equal(t, 50, d.Config().MaxFunctionLines)
	assert.Equal(t, 4, d.Config().MinSignatureTokens)
	assert.InDelta(t, 0.6, d.Config().SimilarityThreshold, 1e-9)
}

func TestNormalizeLine(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"renamed identifiers", "const x = 1; return x;", "const y = 1; return y;", true},
		{"whitespace", "if (a>b) {", "if ( a > b ){", true},
		{"different literal", "const x = 1;", "const x = 2;", false},
		{"different keyword", "let x = 1;", "const x = 1;", false},
		{"different operator", "a === b", "a == b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.same {
				assert.Equal(t, NormalizeLine(tt.a), NormalizeLine(tt.b))
			} else {
				assert.NotEqual(t, NormalizeLine(tt.a), NormalizeLine(tt.b))
			}
		})
	}
	assert.Equal(t, "const ID = 1 ;", NormalizeLine("const  total=1;"))
}

func TestCommentLeaders(t *testing.T) {
	assert.True(t, isCommentLeader("// note", ".js"))
	assert.True(t, isCommentLeader("* @param x", ".ts"))
	assert.True(t, isCommentLeader("#!/usr/bin/env node", ".js"))
	assert.False(t, isCommentLeader("#count = 0;", ".js"))
	assert.False(t, isCommentLeader("#secret;", ".ts"))
	assert.True(t, isCommentLeader("# key: value", ".yaml"))
	assert.True(t, isCommentLeader("# setup", ".sh"))
}

func TestPrivateFieldsStayInBlocks(t *testing.T) {
	counter := `class Counter {
  #count = 0;
  #step = 1;
  #label = 'c';
  #max = 10;
  #min = 0;
}
`
	runs, codeLines := codeRuns(facts.SplitLines([]byte(counter)), ".js")
	require.Len(t, runs, 1)
	assert.Len(t, runs[0], 7)
	assert.Equal(t, 7, codeLines)
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("const s = 'a\\'b' + `t` ?? $el?.value >>> 0x1F;")
	assert.Equal(t, []string{"const", "s", "=", "'a\\'b'", "+", "`t`", "??", "$el", "?.", "value", ">>>", "0x1F", ";"}, tokens)
}

const ifElseA = `const first = require('./one')

if (value > 10) {
  console.log('big')
} else {
  console.log('small')
}
done()
`

const ifElseB = `let other = 42

if (count > 10) {
  console.log('big')
} else {
  console.log('small')
}
done()
`

func TestExactBlocksMergeIntoMaximalRegion(t *testing.T) {
	analysis := detect(t, map[string]string{
		"src/a.js": ifElseA,
		"src/b.js": ifElseB,
	})

	require.Len(t, analysis.ExactBlocks, 1)
	g := analysis.ExactBlocks[0]
	assert.Equal(t, 6, g.Lines)
	assert.GreaterOrEqual(t, g.EstimatedSavings, 6)
	assert.Equal(t, []Instance{
		{File: "src/a.js", StartLine: 3, EndLine: 8},
		{File: "src/b.js", StartLine: 3, EndLine: 8},
	}, g.Instances)
	assert.Equal(t, "if (value > 10) {", g.Preview)

	assert.Equal(t, 14, analysis.Summary.TotalCodeLines)
	assert.Equal(t, 12, analysis.Summary.DuplicatedLines)
	assert.InDelta(t, 12.0/14.0, analysis.Summary.DuplicationRatio, 1e-9)
	require.Len(t, analysis.Hotspots, 2)
	assert.Equal(t, 6, analysis.Hotspots[0].DuplicateLines)
}

func TestExactBlocksThreeCopies(t *testing.T) {
	analysis := detect(t, map[string]string{
		"a.js": ifElseA,
		"b.js": ifElseB,
		"c.js": ifElseA,
	})
	var six *ExactGroup
	for i := range analysis.ExactBlocks {
		if analysis.ExactBlocks[i].Lines == 6 {
			six = &analysis.ExactBlocks[i]
		}
	}
	require.NotNil(t, six)
	assert.Len(t, six.Instances, 3)
	assert.Equal(t, 12, six.EstimatedSavings)
}

func TestExactBlocksIgnoreShortRunsAndComments(t *testing.T) {
	short := "a()\nb()\n\nc()\nd()\n// x\ne()\n"
	analysis := detect(t, map[string]string{
		"a.js": short,
		"b.js": short,
	})
	assert.Empty(t, analysis.ExactBlocks)
	assert.Equal(t, 10, analysis.Summary.TotalCodeLines)
	assert.Zero(t, analysis.Summary.DuplicationRatio)
}

func TestExactBlocksSkipNonCode(t *testing.T) {
	doc := "one\ntwo\nthree\nfour\nfive\nsix\n"
	analysis := detect(t, map[string]string{
		"a.md": doc,
		"b.md": doc,
	})
	assert.Empty(t, analysis.ExactBlocks)
	assert.Zero(t, analysis.Summary.TotalCodeLines)
}

func TestExactBlocksOverlapWithinFile(t *testing.T) {
	repeated := ""
	for i := 0; i < 12; i++ {
		repeated += "count++\n"
	}
	analysis := detect(t, map[string]string{"loop.js": repeated})
	require.NotEmpty(t, analysis.ExactBlocks)
	for _, g := range analysis.ExactBlocks {
		for i := 1; i < len(g.Instances); i++ {
			prev, cur := g.Instances[i-1], g.Instances[i]
			if prev.File == cur.File {
				assert.Greater(t, cur.StartLine, prev.StartLine)
			}
		}
	}
}

const formatUser = `function formatUserDate(user) {
  if (!user) {
    return null
  }
  return moment.format(user.date)
}
`

const formatOrder = `const formatOrderDate = (order) => {
  if (!order) {
    return null
  }
  return moment.format(order.date)
}
`

func TestExtractFunctions(t *testing.T) {
	src := `export async function load(id) {
  try {
    const res = await api.client.get(id)
    return res.data
  } catch (err) {
    throw err
  }
}

class Store {
  save(item) {
    if (item && item.id) {
      this.items.push(item)
    }
  }
}

const handlers = {
  onClick: (event) => {
    event.preventDefault()
  },
}
`
	units := extractFunctions("a.js", facts.SplitLines([]byte(src)), 200)
	names := make([]string, 0, len(units))
	for _, u := range units {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"load", "save", "onClick"}, names)

	load := units[0]
	assert.Equal(t, 1, load.StartLine)
	assert.Equal(t, 8, load.BodyLines)
	assert.Equal(t, []string{"try", "await", "api.client.get", "return", "catch", "throw"}, load.Signature)
	assert.Equal(t, 3, load.Complexity)

	save := units[1]
	assert.Equal(t, 11, save.StartLine)
	assert.Equal(t, 5, save.BodyLines)
	assert.Equal(t, []string{"if", "this.items.push"}, save.Signature)
	assert.Equal(t, 3, save.Complexity)
}

func TestExtractFunctionsBounds(t *testing.T) {
	unclosed := "function open() {\n  if (x) {\n    y()\n"
	assert.Empty(t, extractFunctions("a.js", facts.SplitLines([]byte(unclosed)), 200))

	long := "function big() {\n"
	for i := 0; i < 10; i++ {
		long += "  step()\n"
	}
	long += "}\n"
	assert.Empty(t, extractFunctions("a.js", facts.SplitLines([]byte(long)), 5))
	assert.Len(t, extractFunctions("a.js", facts.SplitLines([]byte(long)), 20), 1)

	statements := "if (ready) {\n  go()\n}\nfor (const x of xs) {\n  go(x)\n}\n"
	assert.Empty(t, extractFunctions("a.js", facts.SplitLines([]byte(statements)), 200))
}

func TestComplexity(t *testing.T) {
	assert.Equal(t, 1, complexity(nil))
	assert.Equal(t, 7, complexity([]string{"if", "(", "a", "&&", "b", ")", "for", "catch", "throw", "||"}))
}

func TestStructuralClusters(t *testing.T) {
	analysis := detect(t, map[string]string{
		"src/users.js":  formatUser,
		"src/orders.js": formatOrder,
	})

	require.Len(t, analysis.FunctionClusters, 1)
	g := analysis.FunctionClusters[0]
	assert.Equal(t, "if return return moment.format", g.Signature)
	assert.Equal(t, "formatDate", g.SuggestedName)
	assert.Equal(t, 6, g.EstimatedSavings)
	require.Len(t, g.Functions, 2)
	assert.Equal(t, "src/orders.js", g.Functions[0].File)
	assert.Equal(t, "formatOrderDate", g.Functions[0].Name)
	assert.Equal(t, "formatUserDate", g.Functions[1].Name)
}

func TestStructuralClustersNeedDifferentNamesAndFiles(t *testing.T) {
	sameName := detect(t, map[string]string{
		"a.js": formatUser,
		"b.js": formatUser,
	})
	assert.Empty(t, sameName.FunctionClusters)

	sameFile := detect(t, map[string]string{
		"a.js": formatUser + "\n" + formatOrder,
	})
	assert.Empty(t, sameFile.FunctionClusters)

	trivial := detect(t, map[string]string{
		"a.js": "function one() {\n  return 1\n}\n",
		"b.js": "function two() {\n  return 2\n}\n",
	})
	assert.Empty(t, trivial.FunctionClusters)
}

func TestSuggestName(t *testing.T) {
	assert.Equal(t, "formatDate", SuggestName([]string{"formatUserDate", "formatOrderDate"}))
	assert.Equal(t, "load", SuggestName([]string{"loadUser", "load_order"}))
	assert.Equal(t, "sharedAlpha", SuggestName([]string{"alpha", "beta"}))
	assert.Equal(t, "", SuggestName(nil))
	assert.Equal(t, []string{"parse", "http", "response"}, splitWords("parseHTTPResponse"))
}

const summarize = `function summarizeOrders(orders, limit) {
  const result = []
  for (const order of orders) {
    if (order.total > limit && order.status === 'open') {
      result.push({ id: order.id, total: order.total * 2 })
    } else if (order.total < 0 || order.refunded) {
      continue
    }
    while (result.length > 100) {
      result.%s()
    }
  }
  try {
    return result.sort((a, b) => a.total - b.total)
  } catch (err) {
    throw new Error('failed: ' + err.message)
  }
}
`

func TestNearDuplicates(t *testing.T) {
	analysis := detect(t, map[string]string{
		"a.js": strings.Replace(summarize, "%s", "shift", 1),
		"b.js": strings.Replace(summarize, "%s", "pop", 1),
	})

	require.Empty(t, analysis.FunctionClusters)
	require.Len(t, analysis.NearDuplicates, 1)
	g := analysis.NearDuplicates[0]
	assert.InDelta(t, 1.0, g.Similarity, 1e-9)
	require.Len(t, g.Functions, 2)
	assert.Equal(t, "a.js", g.Functions[0].File)
	assert.Equal(t, "b.js", g.Functions[1].File)
}

func TestNearDuplicatesSkipSmallFunctions(t *testing.T) {
	analysis := detect(t, map[string]string{
		"a.js": "function a() {\n  go.one()\n}\n",
		"b.js": "function b() {\n  go.two()\n}\n",
	})
	assert.Empty(t, analysis.NearDuplicates)
}

func TestMinHashSimilarity(t *testing.T) {
	tokens := tokenize("if ( a > b ) { return a } else { return b } while ( x ) { x -- }")
	a := computeMinHash(tokens, 5, 128)
	b := computeMinHash(tokens, 5, 128)
	assert.InDelta(t, 1.0, a.JaccardSimilarity(b), 1e-9)

	other := computeMinHash(tokenize("switch ( k ) { case 1 : throw err ; default : break }"), 5, 128)
	assert.Less(t, a.JaccardSimilarity(other), 0.5)

	assert.Zero(t, a.JaccardSimilarity(&MinHashSignature{}))
	assert.Len(t, generateKShingles([]string{"a", "b"}, 5), 1)
	assert.Nil(t, generateKShingles(nil, 5))
}

func TestConfigPatterns(t *testing.T) {
	analysis := detect(t, map[string]string{
		"server.js": "const app = express()\napp.use(cors())\napp.get('/health', ok)\n",
		"api.js":    "router.use(cors({ origin: '*' }))\nrouter.post('/items', create)\n",
		"db.js":     "const pool = new Pool({ max: 5 })\n// app.use(cors())\n",
	})

	tags := make(map[string]ConfigPattern)
	for _, p := range analysis.ConfigPatterns {
		tags[p.Tag] = p
	}
	require.Contains(t, tags, "cors")
	require.Contains(t, tags, "middleware")
	require.Contains(t, tags, "route")
	assert.NotContains(t, tags, "framework-instance")
	assert.NotContains(t, tags, "database-connection")

	cors := tags["cors"]
	assert.Equal(t, []string{"api.js", "server.js"}, cors.Files)
	require.Len(t, cors.Occurrences, 2)
	assert.Equal(t, PatternOccurrence{File: "api.js", Line: 1, Text: "router.use(cors({ origin: '*' }))"}, cors.Occurrences[0])
	assert.Equal(t, 3, analysis.Summary.ConfigPatterns)
}

func TestConfigTags(t *testing.T) {
	assert.Equal(t, []string{"cors", "middleware", "route", "rate-limit", "database-connection", "framework-instance"}, ConfigTags())

	tests := []struct {
		line string
		tag  string
	}{
		{"const limiter = rateLimit({ windowMs: 1000 })", "rate-limit"},
		{"mongoose.connect(process.env.DB_URL)", "database-connection"},
		{"const db = new Sequelize(url)", "database-connection"},
		{"const app = fastify()", "framework-instance"},
		{"const app = new Koa()", "framework-instance"},
		{"res.setHeader('Access-Control-Allow-Origin', '*')", "cors"},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			found := make(map[string][]PatternOccurrence)
			tagLines("x.js", []string{tt.line}, found)
			assert.Contains(t, found, tt.tag)
		})
	}
}

func TestDependencyDuplicates(t *testing.T) {
	analysis := detect(t, map[string]string{
		"package.json":            `{"name": "root", "dependencies": {"D": "^1.0.0", "E": "1.0.0"}}`,
		"packages/a/package.json": `{"name": "a", "devDependencies": {"D": "^1.2.0", "E": "1.0.0"}}`,
		"packages/b/package.json": `{"name": "b", "dependencies": {"F": "2.0.0"}}`,
	})

	require.Len(t, analysis.Dependencies, 2)
	d := analysis.Dependencies[0]
	assert.Equal(t, "D", d.Name)
	assert.True(t, d.VersionConflict)
	assert.Equal(t, []string{"^1.0.0", "^1.2.0"}, d.Versions)
	assert.Equal(t, []string{"package.json", "packages/a/package.json"}, d.Manifests)

	e := analysis.Dependencies[1]
	assert.Equal(t, "E", e.Name)
	assert.False(t, e.VersionConflict)
	assert.Equal(t, []string{"1.0.0"}, e.Versions)

	assert.Equal(t, 2, analysis.Summary.DuplicateDeps)
	assert.Equal(t, 1, analysis.Summary.VersionConflicts)
}

func TestSummaryComplexity(t *testing.T) {
	analysis := detect(t, map[string]string{
		"a.js": formatUser,
		"b.js": "function plain() {\n  go.now()\n}\n",
	})
	assert.Equal(t, 2, analysis.Summary.Functions)
	assert.InDelta(t, 1.5, analysis.Summary.AverageComplexity, 1e-9)
}

func TestDetectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Detect(ctx, input(map[string]string{"a.js": ifElseA}))
	assert.ErrorIs(t, err, context.Canceled)
}
