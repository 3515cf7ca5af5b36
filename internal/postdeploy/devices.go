// Device registration: the per-provider identity-registry write that
// must happen after L1 infrastructure exists, since config_iot_devices.json
// is a runtime input a Terraform apply never sees.
//
// Grounded on the AWS IoT thing-registration call shape already used by
// internal/strategy/aws (aws-sdk-go-v2/service/iot) and, for Azure,
// IoT Hub's device-identity REST surface (the Go ecosystem has no
// control-plane SDK for the device registry itself, only for the Hub
// resource via armiothub — so this is a thin net/http client carrying
// the same azidentity bearer token the rest of the Azure adapter uses).
package postdeploy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/twin2multicloud/deployer/internal/config"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

// RegisterAWSDevice idempotently creates an IoT thing for device,
// retrying while IAM/policy propagation settles.
func RegisterAWSDevice(ctx context.Context, client *iot.Client, device config.IoTDevice) error {
	op := func() error {
		_, err := client.CreateThing(ctx, &iot.CreateThingInput{ThingName: &device.DeviceID})
		if err == nil {
			return nil
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceAlreadyExistsException" {
			return nil
		}
		return err
	}
	policyBackoff := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(op, backoff.WithContext(policyBackoff, ctx)); err != nil {
		return twinerrors.ResourceCreation("L1", "aws", "iot.Thing", device.DeviceID, err)
	}
	return nil
}

// azureDeviceIdentity is the minimal body IoT Hub's device-identity
// REST endpoint accepts for an unauthenticated-SAS (symmetric key)
// device.
type azureDeviceIdentity struct {
	DeviceID string `json:"deviceId"`
}

// RegisterAzureDevice creates a device identity in hubName via IoT
// Hub's REST API, authenticating with cred the same way the rest of
// the Azure adapter does.
func RegisterAzureDevice(ctx context.Context, cred azcore.TokenCredential, hubName string, device config.IoTDevice) error {
	token, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{"https://iothubs.azure.net/.default"}})
	if err != nil {
		return twinerrors.ResourceCreation("L1", "azure", "iothub.Device", device.DeviceID, err)
	}

	body, err := json.Marshal(azureDeviceIdentity{DeviceID: device.DeviceID})
	if err != nil {
		return twinerrors.ResourceCreation("L1", "azure", "iothub.Device", device.DeviceID, err)
	}

	url := fmt.Sprintf("https://%s.azure-devices.net/devices/%s?api-version=2021-04-12", hubName, device.DeviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return twinerrors.ResourceCreation("L1", "azure", "iothub.Device", device.DeviceID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token.Token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return twinerrors.ResourceCreation("L1", "azure", "iothub.Device", device.DeviceID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusPreconditionFailed {
		return twinerrors.ResourceCreation("L1", "azure", "iothub.Device", device.DeviceID,
			fmt.Errorf("iot hub returned status %d", resp.StatusCode))
	}
	return nil
}

// RegisterGCPDevice is a documented no-op: Google Cloud IoT Core, the
// only managed device registry GCP ever offered, was retired in 2023;
// this deployer's GCP L1 uses Pub/Sub topics directly and devices
// publish with project-level service account credentials instead of a
// per-device identity, so there is nothing to register here.
func RegisterGCPDevice(ctx context.Context, device config.IoTDevice) error {
	return nil
}
