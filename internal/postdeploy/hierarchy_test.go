package postdeploy

import (
	"encoding/json"
	"strings"
	"testing"
)

const sampleHierarchy = `{
	"twin_types": {
		"conveyor": {
			"display_name": "Conveyor Belt",
			"properties": {"speed": {"type": "float"}, "running": {"type": "bool"}},
			"relationships": [{"name": "feeds", "target_type": "sorter"}]
		},
		"sorter": {
			"properties": {"bin_count": {"type": "int"}}
		}
	},
	"twins": [
		{"id": "conv-1", "type": "conveyor", "properties": {"speed": 1.5, "running": true}},
		{"id": "sort-1", "type": "sorter", "properties": {"bin_count": 4}}
	],
	"relationships": [
		{"source": "conv-1", "target": "sort-1", "name": "feeds"}
	]
}`

func TestParseHierarchyRejectsInvalidJSON(t *testing.T) {
	if _, err := ParseHierarchy([]byte("not json")); err == nil {
		t.Fatal("expected an error for malformed hierarchy JSON")
	}
}

func TestToDTDLModelsBuildsOnePropertyAndRelationshipContentEach(t *testing.T) {
	h, err := ParseHierarchy([]byte(sampleHierarchy))
	if err != nil {
		t.Fatalf("ParseHierarchy() error = %v", err)
	}

	models := h.ToDTDLModels()
	if len(models) != 2 {
		t.Fatalf("len(models) = %d, want 2", len(models))
	}

	var conveyor *DTDLModel
	for i := range models {
		if strings.HasSuffix(models[i].ID, "conveyor;1") {
			conveyor = &models[i]
		}
	}
	if conveyor == nil {
		t.Fatal("no model produced for the conveyor twin type")
	}
	if conveyor.DisplayName != "Conveyor Belt" {
		t.Errorf("DisplayName = %q, want %q", conveyor.DisplayName, "Conveyor Belt")
	}
	if conveyor.Context != "dtmi:dtdl:context;2" {
		t.Errorf("Context = %q", conveyor.Context)
	}

	var props, rels int
	for _, c := range conveyor.Contents {
		switch c.Type {
		case "Property":
			props++
		case "Relationship":
			rels++
			if c.Name != "feeds" {
				t.Errorf("relationship name = %q, want feeds", c.Name)
			}
			if !strings.HasSuffix(c.Target, "sorter;1") {
				t.Errorf("relationship target = %q, want sorter model", c.Target)
			}
		}
	}
	if props != 2 {
		t.Errorf("property contents = %d, want 2", props)
	}
	if rels != 1 {
		t.Errorf("relationship contents = %d, want 1", rels)
	}
}

func TestMapDTDLTypeDefaultsToString(t *testing.T) {
	cases := map[string]string{
		"int": "integer", "float": "double", "bool": "boolean",
		"datetime": "dateTime", "unknown": "string", "": "string",
	}
	for in, want := range cases {
		if got := mapDTDLType(in); got != want {
			t.Errorf("mapDTDLType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToNDJSONOrdersTwinsBeforeRelationships(t *testing.T) {
	h, err := ParseHierarchy([]byte(sampleHierarchy))
	if err != nil {
		t.Fatalf("ParseHierarchy() error = %v", err)
	}

	out, err := h.ToNDJSON()
	if err != nil {
		t.Fatalf("ToNDJSON() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3 (2 twins + 1 relationship)", len(lines))
	}

	var ops []string
	for _, line := range lines {
		var rec map[string]interface{}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line %q is not valid JSON: %v", line, err)
		}
		ops = append(ops, rec["Op"].(string))
	}
	if ops[0] != "CreateTwin" || ops[1] != "CreateTwin" {
		t.Errorf("first two ops = %v, want both CreateTwin", ops[:2])
	}
	if ops[2] != "CreateRelationship" {
		t.Errorf("last op = %q, want CreateRelationship", ops[2])
	}
}
