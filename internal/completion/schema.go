package completion

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ScentTypes is the closed set of scent device types the model may choose.
// An out-of-set value in a response is repaired to "Floral" downstream.
var ScentTypes = []string{"Floral", "Woody", "Spicy", "Fresh", "Citrus", "Herbal", "Musk", "Oriental"}

// ScentIntervals are the valid scent burst intervals in minutes.
var ScentIntervals = []int{5, 10, 15, 20, 25, 30}

// IconKeys is the closed catalog of background icon keys. The context-only
// prompt embeds this list; the validator drops keys outside it.
var IconKeys = []string{
	// weather
	"sun_soft", "moon_calm", "cloud_soft", "rain_light", "snow_soft", "fog_mist",
	// nature
	"leaf_gentle", "tree_peace", "flower_soft", "wave_slow", "mountain_silhouette",
	"forest_deep", "star_sparkle", "breeze_wind",
	// objects
	"candle_warm", "coffee_mug", "book_focus", "sofa_relax", "window_light",
	"lamp_soft", "clock_slow", "fireplace_cozy",
	// abstract
	"heart_soft", "sparkle_energy", "bubble_thought", "orb_glow", "pulse_calm",
	"target_focus", "wave_brain", "meditation_pose",
}

// DefaultIconKey is substituted when a response carries no usable icon keys.
const DefaultIconKey = "leaf_gentle"

func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ",")
}

func intList(items []int) string {
	parts := make([]string, len(items))
	for i, n := range items {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ",")
}

// RequestSchemaJSON is the strict contract sent with every completion
// request: exact field names, enums, numeric bounds, no extra properties.
// It is the model-facing contract; responses are checked against the
// looser shape schema below so that out-of-range numerics and bad music
// IDs stay soft failures for the validator to repair.
func RequestSchemaJSON() string {
	return fmt.Sprintf(`{
  "type": "object",
  "additionalProperties": false,
  "required": ["segments"],
  "properties": {
    "segments": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["moodAlias", "moodColorHex", "lighting", "scent", "music", "background"],
        "properties": {
          "moodAlias": {"type": "string", "minLength": 1},
          "moodColorHex": {"type": "string", "pattern": "^#[0-9A-Fa-f]{6}$"},
          "lighting": {
            "type": "object",
            "additionalProperties": false,
            "required": ["brightnessPct", "colorTempK"],
            "properties": {
              "brightnessPct": {"type": "integer", "minimum": 0, "maximum": 100},
              "colorTempK": {"type": "integer", "minimum": 2000, "maximum": 6500}
            }
          },
          "scent": {
            "type": "object",
            "additionalProperties": false,
            "required": ["type", "name", "level", "intervalMin"],
            "properties": {
              "type": {"type": "string", "enum": [%s]},
              "name": {"type": "string", "minLength": 1},
              "level": {"type": "integer", "minimum": 1, "maximum": 10},
              "intervalMin": {"type": "integer", "enum": [%s]}
            }
          },
          "music": {
            "type": "object",
            "additionalProperties": false,
            "required": ["trackId", "volumePct", "fadeInMs", "fadeOutMs"],
            "properties": {
              "trackId": {"type": "integer", "minimum": 10, "maximum": 69},
              "volumePct": {"type": "integer", "minimum": 0, "maximum": 100},
              "fadeInMs": {"type": "integer", "minimum": 0, "maximum": 5000},
              "fadeOutMs": {"type": "integer", "minimum": 0, "maximum": 5000}
            }
          },
          "background": {
            "type": "object",
            "additionalProperties": false,
            "required": ["iconKeys", "wind", "animation"],
            "properties": {
              "iconKeys": {
                "type": "array",
                "minItems": 1,
                "maxItems": 4,
                "items": {"type": "string", "enum": [%s]}
              },
              "wind": {
                "type": "object",
                "additionalProperties": false,
                "required": ["directionDeg", "speedUnits"],
                "properties": {
                  "directionDeg": {"type": "number", "minimum": 0, "maximum": 360},
                  "speedUnits": {"type": "number", "minimum": 0, "maximum": 10}
                }
              },
              "animation": {
                "type": "object",
                "additionalProperties": false,
                "required": ["speedUnits", "iconOpacity"],
                "properties": {
                  "speedUnits": {"type": "number", "minimum": 0, "maximum": 10},
                  "iconOpacity": {"type": "number", "minimum": 0, "maximum": 1}
                }
              }
            }
          }
        }
      }
    }
  }
}`, quotedList(ScentTypes), intList(ScentIntervals), quotedList(IconKeys))
}

// responseShapeJSON checks only the structural shape of a completion:
// required keys present and typed as object/string/array. Range and enum
// repair belongs to the validator, and a hallucinated music ID must reach
// the resolver's fallback path instead of discarding the batch here.
const responseShapeJSON = `{
  "type": "object",
  "required": ["segments"],
  "properties": {
    "segments": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["moodAlias", "moodColorHex", "lighting", "scent", "music", "background"],
        "properties": {
          "moodAlias": {"type": "string"},
          "moodColorHex": {"type": "string"},
          "lighting": {"type": "object"},
          "scent": {"type": "object"},
          "music": {"type": "object"},
          "background": {"type": "object"}
        }
      }
    }
  }
}`

var responseShapeSchema = jsonschema.MustCompileString("segment_batch_shape.json", responseShapeJSON)
