package config

import "github.com/xeipuuv/gojsonschema"

const configSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["registry", "threshold", "marker"],
  "properties": {
    "registry": {"type": "string", "pattern": "^https?://"},
    "threshold": {"type": "integer", "minimum": 1},
    "marker": {"type": "string", "minLength": 1},
    "ignorePackages": {
      "anyOf": [
        {"type": "null"},
        {"type": "array", "items": {"type": "string", "minLength": 1}}
      ]
    },
    "reportUnknown": {"type": "boolean"},
    "scanDevDependencies": {"type": "boolean"},
    "lineScanAllDocuments": {"type": "boolean"},
    "helpPath": {"type": "string"},
    "logFile": {"type": "string"},
    "timeouts": {
      "type": "object",
      "properties": {
        "lookup": {"type": "integer", "minimum": 0},
        "scan": {"type": "integer", "minimum": 0}
      }
    },
    "retry": {
      "type": "object",
      "properties": {
        "attempts": {"type": "integer", "minimum": 1, "maximum": 10},
        "initialDelay": {"type": "integer", "minimum": 0}
      }
    },
    "cache": {
      "type": "object",
      "properties": {
        "size": {"type": "integer", "minimum": 0}
      }
    },
    "output": {
      "type": "object",
      "properties": {
        "format": {"enum": ["text", "json", "sarif"]}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(configSchemaJSON)
