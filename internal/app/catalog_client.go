package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/example/nusup/internal/core/catalog"
	"github.com/example/nusup/internal/core/title"
	"github.com/example/nusup/internal/ports/secondary"
)

// CatalogConfig is the fixed remote endpoint the catalog client talks to.
type CatalogConfig struct {
	Endpoint   string
	SOAPAction string
	UserAgent  string
}

// CatalogClient resolves device identity and region, issues the catalog
// request and parses the response. Any failure collapses to an empty
// catalog; the orchestrator turns that into ServerFailed.
type CatalogClient struct {
	store     secondary.TitleStore
	transport secondary.ContentTransport
	cfg       CatalogConfig
	log       *logrus.Logger
}

// NewCatalogClient creates the catalog client. logger may be nil.
func NewCatalogClient(store secondary.TitleStore, transport secondary.ContentTransport, cfg CatalogConfig, logger *logrus.Logger) *CatalogClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &CatalogClient{store: store, transport: transport, cfg: cfg, log: logger}
}

// Fetch retrieves the update catalog. regionOverride replaces the device
// region when non-empty. The returned region is the one actually sent.
func (c *CatalogClient) Fetch(ctx context.Context, regionOverride string) (catalog.Catalog, string) {
	region := regionOverride
	if region == "" {
		region = c.deviceRegion()
	}

	request := catalog.Request(c.deviceID(), region)
	response, ok := c.transport.Post(ctx, c.cfg.Endpoint, request, map[string]string{
		"SOAPAction":   c.cfg.SOAPAction,
		"User-Agent":   c.cfg.UserAgent,
		"Content-Type": "text/xml; charset=utf-8",
	})
	if !ok {
		c.log.Error("catalog: request failed or timed out")
		return catalog.Catalog{}, region
	}

	parsed, err := catalog.ParseResponse(response)
	if err != nil {
		c.log.WithError(err).Error("catalog: could not parse response")
		return catalog.Catalog{}, region
	}
	return parsed, region
}

// deviceID renders the device identity the way the catalog expects:
// the decimal form of the store's 32-bit id with bit 32 set. The server
// does not verify the id, so a store failure degrades to an empty field
// rather than aborting the request.
func (c *CatalogClient) deviceID() string {
	id, err := c.store.DeviceID()
	if err != nil {
		c.log.WithError(err).Warn("catalog: no device id available")
		return ""
	}
	return fmt.Sprintf("%d", uint64(1)<<32|uint64(id))
}

// deviceRegion reads the region from the installed system firmware
// metadata, or returns empty when no firmware is installed.
func (c *CatalogClient) deviceRegion() string {
	tmd, err := c.store.FindInstalledTMD(title.SystemMenu)
	if err != nil {
		if !errors.Is(err, secondary.ErrTitleNotFound) {
			c.log.WithError(err).Warn("catalog: could not read system firmware metadata")
		}
		return ""
	}
	return tmd.Region().CatalogCode()
}
