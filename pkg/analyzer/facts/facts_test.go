package facts

import (
	"testing"

	"github.com/panbanda/sift/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractJS(t *testing.T, content string) *FileFacts {
	t.Helper()
	return Extract(source.FileRecord{RelPath: "src/file.js", Ext: ".js"}, []byte(content))
}

func specifiers(imports []Import) []string {
	out := make([]string, len(imports))
	for i, imp := range imports {
		out[i] = imp.Specifier
	}
	return out
}

func TestExtractStaticImports(t *testing.T) {
	f := extractJS(t, `import React, { useState as useS } from 'react'
import * as utils from "./utils"
import './polyfill'
import type { Props } from './types'
const fs = require('fs')
const { join, resolve: res } = require('./paths')
export { helper } from './helper'
export * from './all'
`)

	assert.Equal(t, []string{"react", "./utils", "./polyfill", "./types", "fs", "./paths", "./helper", "./all"}, specifiers(f.Imports))
	for _, imp := range f.Imports {
		assert.Equal(t, KindStatic, imp.Kind, imp.Specifier)
		assert.False(t, imp.Computed)
	}
	assert.Equal(t, []string{"React", "useS"}, f.Imports[0].Names)
	assert.Equal(t, []string{"utils"}, f.Imports[1].Names)
	assert.Equal(t, []string{"fs"}, f.Imports[4].Names)
	assert.Equal(t, []string{"join", "res"}, f.Imports[5].Names)
	assert.True(t, f.Imports[6].ReExport)
	assert.Equal(t, 1, f.Imports[0].Line)
	assert.Equal(t, 8, f.Imports[7].Line)

	require.Len(t, f.Exports, 2)
	assert.Equal(t, Export{Name: "helper", Line: 7, Kind: ExportReExport}, f.Exports[0])
	assert.Equal(t, Export{Name: "*", Line: 8, Kind: ExportReExport}, f.Exports[1])
}

func TestExtractMultiLineImport(t *testing.T) {
	f := extractJS(t, `import {
  alpha,
  beta as b,
} from './letters'

export {
  one,
  two
}
`)
	require.Len(t, f.Imports, 1)
	assert.Equal(t, "./letters", f.Imports[0].Specifier)
	assert.Equal(t, 1, f.Imports[0].Line)
	assert.Equal(t, []string{"alpha", "b"}, f.Imports[0].Names)

	require.Len(t, f.Exports, 2)
	assert.Equal(t, "one", f.Exports[0].Name)
	assert.Equal(t, 6, f.Exports[0].Line)
}

func TestExtractDynamicLoads(t *testing.T) {
	f := extractJS(t, "const page = await import('./pages/home')\n"+
		"const mod = require(`./locales/${lang}`)\n"+
		"const p = require.resolve('./worker')\n"+
		"const x = require('./plugins/' + name)\n"+
		"const y = require(pluginPath)\n"+
		"const z = require(`./static`)\n")

	require.Len(t, f.Imports, 6)

	assert.Equal(t, Import{Specifier: "./pages/home", Line: 1, Kind: KindDynamic}, f.Imports[0])
	assert.Equal(t, "./locales/", f.Imports[1].Specifier)
	assert.True(t, f.Imports[1].Computed)
	assert.Equal(t, KindDynamic, f.Imports[1].Kind)
	assert.Equal(t, Import{Specifier: "./worker", Line: 3, Kind: KindDynamic}, f.Imports[2])
	assert.Equal(t, "./plugins/", f.Imports[3].Specifier)
	assert.True(t, f.Imports[3].Computed)
	assert.Equal(t, "pluginPath", f.Imports[4].Specifier)
	assert.True(t, f.Imports[4].Computed)
	assert.Equal(t, "./static", f.Imports[5].Specifier)
	assert.Equal(t, KindStatic, f.Imports[5].Kind)
	assert.False(t, f.Imports[5].Computed)
}

func TestExtractIgnoresComments(t *testing.T) {
	f := extractJS(t, `// import a from './a'
/* const b = require('./b')
   import c from './c' */
const url = "http://example.com/x" // require('./d')
import e from './e' /* trailing */
`)
	assert.Equal(t, []string{"./e"}, specifiers(f.Imports))
	assert.False(t, f.CommentOnly)
}

func TestExtractMemberRequireIgnored(t *testing.T) {
	f := extractJS(t, "const m = module.require('./x')\nconst n = $import('./y')\n")
	assert.Empty(t, f.Imports)
}

func TestExtractExports(t *testing.T) {
	f := extractJS(t, `export default function main() {}
export const VALUE = 1
export async function load() {}
export class Widget {}
export { a, b as c }
module.exports = { x }
exports.helper = helper
module.exports.other = other
if (exports.flag === true) {}
`)
	var names []string
	for _, e := range f.Exports {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"default", "VALUE", "load", "Widget", "a", "c", "module.exports", "helper", "other"}, names)
	assert.Equal(t, ExportDefault, f.Exports[0].Kind)
	assert.Equal(t, ExportCommonJS, f.Exports[7].Kind)
}

func TestExtractContentFlags(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		empty       bool
		commentOnly bool
		lines       int
	}{
		{"zero bytes", "", true, false, 0},
		{"whitespace", "  \n\t\n", true, false, 2},
		{"line comments", "// a\n// b\n", false, true, 2},
		{"block comment", "/**\n * doc\n */\n", false, true, 3},
		{"shebang only", "#!/usr/bin/env node\n", false, true, 1},
		{"code", "const a = 1\n", false, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := extractJS(t, tt.content)
			assert.Equal(t, tt.empty, f.Empty)
			assert.Equal(t, tt.commentOnly, f.CommentOnly)
			assert.Equal(t, tt.lines, f.Lines)
			assert.Equal(t, tt.empty || tt.commentOnly, f.IsEmptyLike())
		})
	}
}

func TestExtractTestCalls(t *testing.T) {
	assert.True(t, extractJS(t, "describe('x', () => {})\n").HasTestCalls)
	assert.True(t, extractJS(t, "it.each([1])('x', () => {})\n").HasTestCalls)
	assert.True(t, extractJS(t, "expect(1).toBe(1)\n").HasTestCalls)
	assert.False(t, extractJS(t, "const ok = /x/.test(str)\n").HasTestCalls)
	assert.False(t, extractJS(t, "const helper = 1\n").HasTestCalls)
}

func TestExtractAnnotations(t *testing.T) {
	f := extractJS(t, "const a = 1\n/* never closed\n")
	assert.Contains(t, f.Errors, "unterminated block comment")

	f = Extract(source.FileRecord{RelPath: "blob.js", Ext: ".js"}, []byte("a\x00b"))
	assert.Contains(t, f.Errors, "binary content skipped")
	assert.Empty(t, f.Imports)
}

func TestExtractNonJS(t *testing.T) {
	f := Extract(source.FileRecord{RelPath: "README.md", Ext: ".md"}, []byte("import x from './y'\n"))
	assert.Empty(t, f.Imports)
	assert.False(t, f.Empty)
	assert.Equal(t, 1, f.Lines)
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		in        string
		inBlock   bool
		want      string
		wantBlock bool
	}{
		{"a // b", false, "a ", false},
		{"a /* b */ c", false, "a  c", false},
		{"a /* b", false, "a ", true},
		{"still */ d", true, " d", false},
		{`"//" + x`, false, `"//" + x`, false},
		{`'it\'s' // c`, false, `'it\'s' `, false},
	}
	for _, tt := range tests {
		got, block := StripComments(tt.in, tt.inBlock)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantBlock, block, tt.in)
	}
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(nil))
	assert.Equal(t, []string{"a", "b"}, SplitLines([]byte("a\r\nb\n")))
	assert.Equal(t, []string{"a", ""}, SplitLines([]byte("a\n\n")))
}
