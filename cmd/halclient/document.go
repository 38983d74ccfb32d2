package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	json "github.com/goccy/go-json"

	halclient "github.com/reoring/halclient"
	"github.com/reoring/halclient/internal/config"
)

// document is the contract for an arbitrary relation element.
type document interface {
	Resource(ctx context.Context) (*halclient.Resource, error)
}

type rawDocument struct {
	Doc *halclient.Resource `hal:",resource"`
}

func (d *rawDocument) Resource(context.Context) (*halclient.Resource, error) { return d.Doc, nil }

type lazyDocument struct{ halclient.Proxy[document] }

func (d lazyDocument) Resource(ctx context.Context) (*halclient.Resource, error) {
	t, err := d.Target(ctx)
	if err != nil {
		return nil, err
	}
	return t.Resource(ctx)
}

func newDocumentMapper(cfg *config.Config, f halclient.Fetcher, logger *slog.Logger) (*halclient.Mapper, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	reg := halclient.NewRegistry()
	if err := halclient.RegisterType[document](reg, func() document { return &rawDocument{} }); err != nil {
		return nil, err
	}
	pf := halclient.NewProxyFactory(policy)
	if err := halclient.RegisterProxy[document](pf, func(p halclient.Proxy[document]) document { return lazyDocument{p} }); err != nil {
		return nil, err
	}
	return halclient.NewMapper(cfg.MapperConfig(reg, pf, f, logger))
}

func toGeneric(res *halclient.Resource) (map[string]any, error) {
	data, err := res.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeIndented(w io.Writer, data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
