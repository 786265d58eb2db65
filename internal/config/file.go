package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML overlay used by the CLI. Pointer fields
// distinguish "absent" from zero so the file only overrides what it sets.
type fileConfig struct {
	PostgresDSN *string `yaml:"postgres_dsn"`
	NATSURL     *string `yaml:"nats_url"`
	NATSSubject *string `yaml:"nats_subject"`

	OllamaURL        *string `yaml:"ollama_url"`
	OllamaGenModel   *string `yaml:"ollama_gen_model"`
	OllamaEmbedModel *string `yaml:"ollama_embed_model"`

	ChromaURL *string `yaml:"chroma_url"`

	ChunkSize    *int `yaml:"chunk_size"`
	ChunkOverlap *int `yaml:"chunk_overlap"`

	TopK           *int     `yaml:"top_k"`
	FetchK         *int     `yaml:"fetch_k"`
	SemanticWeight *float64 `yaml:"semantic_weight"`
	BM25Weight     *float64 `yaml:"bm25_weight"`
	UseMMR         *bool    `yaml:"use_mmr"`
	MMRDiversity   *float64 `yaml:"mmr_diversity"`

	BatchSize      *int     `yaml:"batch_size"`
	FuzzyThreshold *float64 `yaml:"fuzzy_threshold"`
}

// LoadWithFile layers a YAML config file over the environment defaults.
func LoadWithFile(path string) (Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var overlay fileConfig
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	applyString(&cfg.PostgresDSN, overlay.PostgresDSN)
	applyString(&cfg.NATSURL, overlay.NATSURL)
	applyString(&cfg.NATSSubject, overlay.NATSSubject)
	applyString(&cfg.OllamaURL, overlay.OllamaURL)
	applyString(&cfg.OllamaGenModel, overlay.OllamaGenModel)
	applyString(&cfg.OllamaEmbedModel, overlay.OllamaEmbedModel)
	applyString(&cfg.ChromaURL, overlay.ChromaURL)
	applyInt(&cfg.ChunkSize, overlay.ChunkSize)
	applyInt(&cfg.ChunkOverlap, overlay.ChunkOverlap)
	applyInt(&cfg.TopK, overlay.TopK)
	applyInt(&cfg.FetchK, overlay.FetchK)
	applyFloat(&cfg.SemanticWeight, overlay.SemanticWeight)
	applyFloat(&cfg.BM25Weight, overlay.BM25Weight)
	applyBool(&cfg.UseMMR, overlay.UseMMR)
	applyFloat(&cfg.MMRDiversity, overlay.MMRDiversity)
	applyInt(&cfg.BatchSize, overlay.BatchSize)
	applyFloat(&cfg.FuzzyThreshold, overlay.FuzzyThreshold)

	return cfg, nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func applyInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func applyFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func applyBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
