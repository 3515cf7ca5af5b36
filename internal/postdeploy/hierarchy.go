// Package postdeploy implements component 4.K, Post-Deploy SDK
// Operations: the idempotent SDK-level work that runs after IaC apply
// because Terraform has no concept of it (twin hierarchy upload,
// device registration).
//
// Hierarchy conversion is grounded on
// original_source/3-cloud-deployer/src/providers/azure/layers/l4_adapter.py's
// _hierarchy_to_dtdl_models/_create_twins_from_hierarchy, re-expressed
// as pure Go types so it can be unit-tested without any SDK client.
package postdeploy

import (
	"encoding/json"

	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

const dtdlNamespace = "dtmi:com:twin2multicloud"

// Hierarchy is the decoded shape of config.json's "hierarchy" field
// (or a dedicated azure_hierarchy.json/config_hierarchy.json file).
type Hierarchy struct {
	TwinTypes map[string]TwinType `json:"twin_types"`
	Twins     []TwinInstance      `json:"twins"`
	Relationships []Relationship  `json:"relationships"`
}

// TwinType describes one DTDL interface: its properties and the
// relationship names it can participate in.
type TwinType struct {
	DisplayName   string                  `json:"display_name"`
	Properties    map[string]TypeProperty `json:"properties"`
	Relationships []TypeRelationship      `json:"relationships"`
}

type TypeProperty struct {
	Type string `json:"type"`
}

type TypeRelationship struct {
	Name       string `json:"name"`
	TargetType string `json:"target_type"`
}

// TwinInstance is one concrete node in the hierarchy.
type TwinInstance struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
}

// Relationship links two twin instances.
type Relationship struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Name   string `json:"name"`
}

// ParseHierarchy decodes raw JSON (either config.json's embedded
// "hierarchy" field or a standalone hierarchy file) into a Hierarchy.
func ParseHierarchy(raw []byte) (*Hierarchy, error) {
	var h Hierarchy
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, twinerrors.Configuration("hierarchy", "", "failed to parse hierarchy JSON").Wrap(err)
	}
	return &h, nil
}

// DTDLModel is one DTDL v2 Interface document.
type DTDLModel struct {
	ID          string          `json:"@id"`
	Type        string          `json:"@type"`
	Context     string          `json:"@context"`
	DisplayName string          `json:"displayName"`
	Contents    []DTDLContent   `json:"contents"`
}

// DTDLContent is one Property or Relationship entry inside a model.
type DTDLContent struct {
	Type     string `json:"@type"`
	Name     string `json:"name"`
	Schema   string `json:"schema,omitempty"`
	Writable bool   `json:"writable,omitempty"`
	Target   string `json:"target,omitempty"`
}

// ToDTDLModels converts every twin type into a DTDL v2 interface,
// the exact structure original_source's _hierarchy_to_dtdl_models
// builds: one Property content per type property, one Relationship
// content per declared relationship.
func (h *Hierarchy) ToDTDLModels() []DTDLModel {
	models := make([]DTDLModel, 0, len(h.TwinTypes))
	for typeName, typeConfig := range h.TwinTypes {
		model := DTDLModel{
			ID:          modelID(typeName),
			Type:        "Interface",
			Context:     "dtmi:dtdl:context;2",
			DisplayName: displayName(typeConfig, typeName),
		}
		for propName, prop := range typeConfig.Properties {
			model.Contents = append(model.Contents, DTDLContent{
				Type:     "Property",
				Name:     propName,
				Schema:   mapDTDLType(prop.Type),
				Writable: true,
			})
		}
		for _, rel := range typeConfig.Relationships {
			name := rel.Name
			if name == "" {
				name = "contains"
			}
			content := DTDLContent{Type: "Relationship", Name: name}
			if rel.TargetType != "" {
				content.Target = modelID(rel.TargetType)
			}
			model.Contents = append(model.Contents, content)
		}
		models = append(models, model)
	}
	return models
}

func modelID(typeName string) string {
	return dtdlNamespace + ":" + typeName + ";1"
}

func displayName(t TwinType, fallback string) string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return fallback
}

func mapDTDLType(typeStr string) string {
	switch typeStr {
	case "string", "str", "":
		return "string"
	case "int", "integer":
		return "integer"
	case "float", "double", "number":
		return "double"
	case "bool", "boolean":
		return "boolean"
	case "date":
		return "date"
	case "datetime":
		return "dateTime"
	case "time":
		return "time"
	default:
		return "string"
	}
}

// ToNDJSON renders every twin instance and relationship in the
// hierarchy as newline-delimited JSON import records, in twins-first
// then relationships order (ADT's bulk import requires twins to exist
// before relationships referencing them).
func (h *Hierarchy) ToNDJSON() ([]byte, error) {
	var buf []byte
	for _, twin := range h.Twins {
		record := map[string]interface{}{
			"Op": "CreateTwin",
			"twin": map[string]interface{}{
				"$dtId": twin.ID,
				"$metadata": map[string]interface{}{
					"$model": modelID(twin.Type),
				},
			},
		}
		for k, v := range twin.Properties {
			record["twin"].(map[string]interface{})[k] = v
		}
		line, err := json.Marshal(record)
		if err != nil {
			return nil, twinerrors.Deployment("L4", "azure", "failed to marshal twin import record").Wrap(err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	for _, rel := range h.Relationships {
		name := rel.Name
		if name == "" {
			name = "contains"
		}
		record := map[string]interface{}{
			"Op": "CreateRelationship",
			"relationship": map[string]interface{}{
				"$sourceId":   rel.Source,
				"$targetId":   rel.Target,
				"$relationshipName": name,
			},
		}
		line, err := json.Marshal(record)
		if err != nil {
			return nil, twinerrors.Deployment("L4", "azure", "failed to marshal relationship import record").Wrap(err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return buf, nil
}
