package postdeploy

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azdigitaltwins/azdigitaltwins"
	"github.com/aws/aws-sdk-go-v2/service/iot"

	"github.com/twin2multicloud/deployer/internal/config"
	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

// UploadHierarchy converts the twin hierarchy to DTDL v2 models and
// twin/relationship records, then pushes them into the L4 provider's
// digital-twin service. Only Azure Digital Twins is wired today; AWS
// IoT TwinMaker entity creation and GCP's future-work L4 fall through
// untouched so DeployL4 callers never need a provider switch of their
// own.
func UploadHierarchy(ctx context.Context, dc *depctx.DeploymentContext, raw []byte) error {
	h, err := ParseHierarchy(raw)
	if err != nil {
		return err
	}

	adapter, err := dc.GetProviderForLayer(config.L4)
	if err != nil {
		return err
	}
	if adapter.Name() != "azure" {
		return nil
	}

	client, _ := adapter.Clients()["digitaltwins"].(*azdigitaltwins.Client)
	if client == nil {
		return twinerrors.Deployment("L4", "azure", "digital twins client not initialized")
	}

	for _, model := range h.ToDTDLModels() {
		body, err := marshalModel(model)
		if err != nil {
			return twinerrors.Deployment("L4", "azure", "failed to marshal DTDL model").Wrap(err)
		}
		if _, err := client.CreateModels(ctx, [][]byte{body}, nil); err != nil && !isModelConflict(err) {
			return twinerrors.ResourceCreation("L4", "azure", "azuredigitaltwins.Model", model.ID, err)
		}
	}

	for _, twin := range h.Twins {
		body, err := marshalTwin(twin)
		if err != nil {
			return twinerrors.Deployment("L4", "azure", "failed to marshal twin").Wrap(err)
		}
		if _, err := client.CreateOrReplaceDigitalTwin(ctx, twin.ID, body, nil); err != nil {
			return twinerrors.ResourceCreation("L4", "azure", "azuredigitaltwins.Twin", twin.ID, err)
		}
	}

	for _, rel := range h.Relationships {
		name := rel.Name
		if name == "" {
			name = "contains"
		}
		body, err := marshalRelationship(rel, name)
		if err != nil {
			return twinerrors.Deployment("L4", "azure", "failed to marshal relationship").Wrap(err)
		}
		relID := rel.Source + "-" + name + "-" + rel.Target
		if _, err := client.CreateOrReplaceRelationship(ctx, rel.Source, relID, body, nil); err != nil {
			return twinerrors.ResourceCreation("L4", "azure", "azuredigitaltwins.Relationship", relID, err)
		}
	}
	return nil
}

// RegisterDevices reads config_iot_devices.json, if present, and
// registers each device's identity with whichever provider hosts L1.
func RegisterDevices(ctx context.Context, dc *depctx.DeploymentContext) error {
	devices, err := config.LoadIoTDevices(dc.ProjectPath)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}

	adapter, err := dc.GetProviderForLayer(config.L1)
	if err != nil {
		return err
	}

	switch adapter.Name() {
	case "aws":
		client, _ := adapter.Clients()["iot"].(*iot.Client)
		if client == nil {
			return twinerrors.Deployment("L1", "aws", "iot client not initialized")
		}
		for _, d := range devices {
			if err := RegisterAWSDevice(ctx, client, d); err != nil {
				return err
			}
		}
	case "azure":
		cred, _ := adapter.Clients()["credential"].(azcore.TokenCredential)
		if cred == nil {
			return twinerrors.Deployment("L1", "azure", "iot hub credential not initialized")
		}
		hub := adapter.Naming().IotRole()
		for _, d := range devices {
			if err := RegisterAzureDevice(ctx, cred, hub, d); err != nil {
				return err
			}
		}
	case "google":
		for _, d := range devices {
			if err := RegisterGCPDevice(ctx, d); err != nil {
				return err
			}
		}
	}
	return nil
}

func marshalModel(m DTDLModel) ([]byte, error) {
	return json.Marshal(m)
}

func marshalTwin(t TwinInstance) ([]byte, error) {
	body := map[string]interface{}{
		"$metadata": map[string]interface{}{"$model": modelID(t.Type)},
	}
	for k, v := range t.Properties {
		body[k] = v
	}
	return json.Marshal(body)
}

func marshalRelationship(rel Relationship, name string) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"$targetId":          rel.Target,
		"$relationshipName":  name,
	})
}

// isModelConflict reports whether err is ADT's 409 response for a
// model that was already uploaded by a previous run.
func isModelConflict(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 409
}
