package api

import (
	"fmt"

	"investor-matching/internal/common/validation"
)

// Structural checks only. Range and consistency rules live in the thesis package.
const thesisProperties = `{
	"minFundingAsk":       {"type": "integer"},
	"maxFundingAsk":       {"type": "integer"},
	"preferredIndustries": {"type": "array", "maxItems": 50, "items": {"type": "string"}},
	"preferredStages":     {"type": "array", "maxItems": 20, "items": {"type": "string"}},
	"countries":           {"type": "array", "maxItems": 250, "items": {"type": "string"}},
	"noLocationPref":      {"type": "boolean"},
	"remoteOk":            {"type": "boolean"},
	"weights": {
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"industry": {"type": "number"},
			"stage":    {"type": "number"},
			"funding":  {"type": "number"},
			"location": {"type": "number"},
			"traction": {"type": "number"},
			"team":     {"type": "number"}
		}
	},
	"keywords":        {"type": "array", "maxItems": 50, "items": {"type": "string"}},
	"excludeKeywords": {"type": "array", "maxItems": 50, "items": {"type": "string"}}
}`

var (
	putThesisSchema = validation.MustCompile("put-thesis", fmt.Sprintf(`{
		"type": "object",
		"additionalProperties": false,
		"required": ["maxFundingAsk"],
		"properties": %s
	}`, thesisProperties))

	patchThesisSchema = validation.MustCompile("patch-thesis", fmt.Sprintf(`{
		"type": "object",
		"additionalProperties": false,
		"minProperties": 1,
		"properties": %s
	}`, thesisProperties))

	computeMatchSchema = validation.MustCompile("compute-match", `{
		"type": "object",
		"additionalProperties": false,
		"required": ["startupId"],
		"properties": {
			"startupId": {"type": "string", "minLength": 1, "maxLength": 128}
		}
	}`)

	updateStatusSchema = validation.MustCompile("update-match-status", `{
		"type": "object",
		"additionalProperties": false,
		"required": ["status"],
		"properties": {
			"status": {"type": "string", "enum": ["viewed", "interested", "not_interested", "contacted"]}
		}
	}`)

	recordInteractionSchema = validation.MustCompile("record-interaction", `{
		"type": "object",
		"additionalProperties": false,
		"required": ["matchId", "type"],
		"properties": {
			"matchId": {"type": "string", "minLength": 1, "maxLength": 128},
			"type":    {"type": "string", "enum": ["view", "like", "pass", "save", "contact", "note"]},
			"notes":   {"type": ["string", "null"], "maxLength": 2000}
		}
	}`)
)
