package mcpserver

// Tool descriptions with interpretation guidance for LLMs. Each one says
// what the tool does, when to use it and how to read the result.

func describeRedundancy() string {
	return `Runs the full redundancy analysis of a JavaScript/TypeScript source tree: unused files, duplicated code, duplicated dependencies and configuration, empty files and directories, byte-identical files, import cycles and broken markdown links.

USE WHEN:
- Getting an overview before cleaning up a repository
- Estimating how much code and disk space could be reclaimed
- Checking health scores in a review or CI discussion

INTERPRETING RESULTS:
- metrics.codeHealth drops with unused files (30 points at 100% unused) and duplicated block lines (40 points at 100% duplicated)
- metrics.maintainability loses 10 points per import cycle and 5 per orphan file
- metrics.redundancy loses 5 points per duplicated dependency and 3 per repeated configuration pattern
- Scores are uncalibrated heuristics; compare runs of the same repository rather than across repositories
- recommendations.priority.high lists version conflicts, utilities to extract and configuration to unify
- annotations list files that could not be read or parsed; they never abort the run
- Over the token budget only the condensed summary is returned

METRICS RETURNED:
- summary: file, unused, duplicate, cycle, orphan, empty and broken-link counts
- files, dependencies, patterns, redundancy, links: full findings
- recommendations bucketed by kind and by impact`
}

func describeUnusedFiles() string {
	return `Lists JavaScript/TypeScript files that no entry point can reach, with the reasons and a safety rating for each.

USE WHEN:
- Deciding which files can be deleted
- Checking why a file is considered unused
- Verifying that entry points were detected correctly

INTERPRETING RESULTS:
- reasons: no-inbound-edges (nothing imports it), unreachable (no path from an entry point), empty (no code), empty-test (a test file without test calls)
- safety "safe": no configuration file mentions the file; "review_required": its name appears in a config, so it may be loaded dynamically
- Files loaded only through runtime-built strings are invisible to this check; confirm before deleting
- entryPoints maps each entry file to why it counts (caller, manifest-main, manifest-bin, manifest-script, convention, tooling-config, test-runner)
- Pass entry_points to add entries the heuristics missed

METRICS RETURNED:
- unused: candidates with reasons, confidence and safety
- entryPoints, emptyFiles, orphans`
}

func describeDuplicates() string {
	return `Finds duplicated code and configuration: exact normalized blocks, structurally identical functions, near-duplicate functions, repeated framework setup, dependencies declared in several manifests and byte-identical files.

USE WHEN:
- Looking for code to extract into shared utilities
- Finding copy-pasted setup (CORS, middleware, routes, database connections)
- Aligning dependency versions across a monorepo

INTERPRETING RESULTS:
- exactBlocks: runs of at least 5 code lines identical after identifier normalization; estimatedSavings = lines x (copies - 1)
- functionClusters: functions in different files with the same control-flow and call signature; suggestedName is a proposed utility name
- nearDuplicates: functions whose token shingles are at least 80% similar (MinHash estimate)
- dependencies with versionConflict=true declare different version ranges and are high priority
- identicalFiles: the same bytes in several paths; reclaimableBytes counts all but one copy

METRICS RETURNED:
- Per-category finding lists, optionally truncated with top
- summary: duplicated lines, duplication ratio, function count, average complexity`
}

func describeDependencyGraph() string {
	return `Returns the file-level import graph of a JavaScript/TypeScript tree with cycles, strongly connected components, unresolved imports and unused package dependencies.

USE WHEN:
- Understanding how modules depend on each other
- Finding and breaking circular imports
- Spotting imports that point at missing files

INTERPRETING RESULTS:
- graph maps each file to the files it imports (relative specifiers only)
- cycles: each cycle lists files in import order; the last file imports the first
- stronglyConnected: groups of files that all reach each other; larger groups are harder to untangle
- issues: unresolved (target missing), escapes-root, computed (non-literal require/import) and ambiguous (several files match an extensionless import; the first match is used)
- unusedDependencies: runtime dependencies never imported and not mentioned in scripts or configs

METRICS RETURNED:
- graph, cycles, stronglyConnected, issues, unusedDependencies
- maintainability score`
}

func describePlanRemoval() string {
	return `Previews removing every file the analysis marked safe, plus empty directories. Nothing is deleted; the report shows what a real removal would do.

USE WHEN:
- Reviewing a cleanup before running "sift remove"
- Estimating reclaimed bytes

INTERPRETING RESULTS:
- Every file and directory has status would-remove, or failed with a message in errors
- directories include parents that would become empty, deepest first
- breakdown counts removals by kind: unused, empty, empty-directory
- Candidates rated review_required are never included

METRICS RETURNED:
- summary: filesRemoved, directoriesRemoved, totalSizeBytes, errors, dryRun
- files, directories, errors, breakdown`
}
