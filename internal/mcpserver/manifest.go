package mcpserver

import (
	"encoding/json"
)

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	serverName     = "io.github.panbanda/sift"
	repositoryURL  = "https://github.com/panbanda/sift"
	imageName      = "ghcr.io/panbanda/sift"
)

// Manifest is the registry entry (server.json) for the sift MCP server.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package describes one way to launch the server.
type Package struct {
	RegistryType         string   `json:"registryType"`
	Identifier           string   `json:"identifier"`
	PackageArguments     []Arg    `json:"packageArguments,omitempty"`
	EnvironmentVariables []EnvVar `json:"environmentVariables,omitempty"`
	Transport            struct {
		Type string `json:"type"`
	} `json:"transport"`
}

// Arg is a fixed command-line argument passed to the package.
type Arg struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// EnvVar is an environment variable the server reads.
type EnvVar struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired"`
}

// GenerateManifest returns the indented server.json for version. The
// container image runs "sift mcp" over stdio.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" || version == "dev" {
		version = "0.0.0"
	}

	pkg := Package{
		RegistryType:     "oci",
		Identifier:       imageName + ":" + version,
		PackageArguments: []Arg{{Type: "positional", Value: "mcp"}},
		EnvironmentVariables: []EnvVar{{
			Name:        "SIFT_CONFIG",
			Description: "Path to a sift.toml, sift.yaml or sift.json configuration file",
		}},
	}
	pkg.Transport.Type = "stdio"

	return json.MarshalIndent(Manifest{
		Schema:      manifestSchema,
		Name:        serverName,
		Title:       "sift",
		Description: "Find unused files, import cycles and duplicated code in JavaScript and TypeScript trees",
		Version:     version,
		Repository:  &Repository{URL: repositoryURL, Source: "github"},
		Packages:    []Package{pkg},
	}, "", "  ")
}
