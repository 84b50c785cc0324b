package duplicates

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// codeLine is a line that can take part in a block.
type codeLine struct {
	number     int
	normalized string
	raw        string
}

// codeRuns splits content lines into maximal runs of consecutive code
// lines. Blank lines and lines starting with a comment leader end a run.
func codeRuns(lines []string, ext string) (runs [][]codeLine, codeLines int) {
	var current []codeLine
	flush := func() {
		if len(current) > 0 {
			runs = append(runs, current)
			current = nil
		}
	}
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isCommentLeader(trimmed, ext) {
			flush()
			continue
		}
		codeLines++
		current = append(current, codeLine{
			number:     i + 1,
			normalized: NormalizeLine(trimmed),
			raw:        trimmed,
		})
	}
	flush()
	return runs, codeLines
}

// windows returns every minLines-long window of every run as a hashed block.
func windows(file string, runs [][]codeLine, minLines int) []CodeBlock {
	var blocks []CodeBlock
	var sb strings.Builder
	for _, run := range runs {
		for start := 0; start+minLines <= len(run); start++ {
			sb.Reset()
			for _, l := range run[start : start+minLines] {
				sb.WriteString(l.normalized)
				sb.WriteByte('\n')
			}
			blocks = append(blocks, CodeBlock{
				File:      file,
				StartLine: run[start].number,
				EndLine:   run[start+minLines-1].number,
				Hash:      xxhash.Sum64String(sb.String()),
			})
		}
	}
	return blocks
}

// hashGroup is a set of windows sharing a hash.
type hashGroup struct {
	hash      uint64
	instances []Instance
}

func (g hashGroup) key(shift int) string {
	var sb strings.Builder
	for _, inst := range g.instances {
		sb.WriteString(inst.File)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(inst.StartLine + shift))
		sb.WriteByte(';')
	}
	return sb.String()
}

// groupBlocks buckets windows by hash. Within a bucket, windows from the
// same file that overlap an earlier kept window are dropped. Buckets with
// fewer than two surviving windows are discarded.
func groupBlocks(blocks []CodeBlock) []hashGroup {
	byHash := make(map[uint64][]CodeBlock)
	for _, b := range blocks {
		byHash[b.Hash] = append(byHash[b.Hash], b)
	}

	groups := make([]hashGroup, 0, len(byHash))
	for hash, members := range byHash {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			if members[i].File != members[j].File {
				return members[i].File < members[j].File
			}
			return members[i].StartLine < members[j].StartLine
		})
		g := hashGroup{hash: hash}
		lastEnd := make(map[string]int)
		for _, m := range members {
			if end, ok := lastEnd[m.File]; ok && m.StartLine <= end {
				continue
			}
			lastEnd[m.File] = m.EndLine
			g.instances = append(g.instances, Instance{File: m.File, StartLine: m.StartLine, EndLine: m.EndLine})
		}
		if len(g.instances) >= 2 {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].instances[0], groups[j].instances[0]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.StartLine < b.StartLine
	})
	return groups
}

// mergeRegions chains groups whose instances are the same regions shifted
// by one line, so overlapping windows collapse into one maximal region.
func mergeRegions(groups []hashGroup, minLines int, preview func(file string, line int) string) []ExactGroup {
	byKey := make(map[string]int, len(groups))
	for i, g := range groups {
		byKey[g.key(0)] = i
	}
	next := make([]int, len(groups))
	hasPrev := make([]bool, len(groups))
	for i, g := range groups {
		next[i] = -1
		if j, ok := byKey[g.key(1)]; ok && j != i {
			next[i] = j
			hasPrev[j] = true
		}
	}

	var result []ExactGroup
	for i, g := range groups {
		if hasPrev[i] {
			continue
		}
		length := minLines
		seen := map[int]bool{i: true}
		for j := next[i]; j >= 0 && !seen[j]; j = next[j] {
			seen[j] = true
			length++
		}

		instances := make([]Instance, len(g.instances))
		for k, inst := range g.instances {
			instances[k] = Instance{File: inst.File, StartLine: inst.StartLine, EndLine: inst.StartLine + length - 1}
		}
		eg := ExactGroup{
			Hash:             g.hash,
			Lines:            length,
			Instances:        instances,
			EstimatedSavings: length * (len(instances) - 1),
		}
		if preview != nil {
			eg.Preview = preview(instances[0].File, instances[0].StartLine)
		}
		result = append(result, eg)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EstimatedSavings > result[j].EstimatedSavings
	})
	return result
}

// coveredLines counts the distinct file lines covered by any instance.
func coveredLines(groups []ExactGroup) int {
	covered := make(map[string]map[int]struct{})
	for _, g := range groups {
		for _, inst := range g.Instances {
			lines := covered[inst.File]
			if lines == nil {
				lines = make(map[int]struct{})
				covered[inst.File] = lines
			}
			for l := inst.StartLine; l <= inst.EndLine; l++ {
				lines[l] = struct{}{}
			}
		}
	}
	total := 0
	for _, lines := range covered {
		total += len(lines)
	}
	return total
}
