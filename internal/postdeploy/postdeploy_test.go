package postdeploy

import (
	"encoding/json"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

func TestMarshalTwinEmbedsModelMetadataAndProperties(t *testing.T) {
	twin := TwinInstance{
		ID:         "conv-1",
		Type:       "conveyor",
		Properties: map[string]interface{}{"speed": 1.5},
	}

	body, err := marshalTwin(twin)
	if err != nil {
		t.Fatalf("marshalTwin() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("marshalTwin() produced invalid JSON: %v", err)
	}

	meta, ok := decoded["$metadata"].(map[string]interface{})
	if !ok {
		t.Fatal("missing $metadata")
	}
	if meta["$model"] != modelID("conveyor") {
		t.Errorf("$model = %v, want %v", meta["$model"], modelID("conveyor"))
	}
	if decoded["speed"] != 1.5 {
		t.Errorf("speed = %v, want 1.5", decoded["speed"])
	}
}

func TestMarshalRelationshipCarriesTargetAndName(t *testing.T) {
	body, err := marshalRelationship(Relationship{Source: "a", Target: "b"}, "contains")
	if err != nil {
		t.Fatalf("marshalRelationship() error = %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["$targetId"] != "b" {
		t.Errorf("$targetId = %v, want b", decoded["$targetId"])
	}
	if decoded["$relationshipName"] != "contains" {
		t.Errorf("$relationshipName = %v, want contains", decoded["$relationshipName"])
	}
}

func TestIsModelConflictDetectsOnlyStatus409(t *testing.T) {
	if isModelConflict(nil) {
		t.Error("isModelConflict(nil) = true, want false")
	}
	conflict := &azcore.ResponseError{StatusCode: 409}
	if !isModelConflict(conflict) {
		t.Error("isModelConflict(409) = false, want true")
	}
	notFound := &azcore.ResponseError{StatusCode: 404}
	if isModelConflict(notFound) {
		t.Error("isModelConflict(404) = true, want false")
	}
}
