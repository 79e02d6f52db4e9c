package tools

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/logging"
	"github.com/soyeahso/mcpchat/internal/toolprovider"
	"github.com/soyeahso/mcpchat/internal/tracing"
)

// Policy decides what happens when two tools share an exposed name.
type Policy string

const (
	PolicyOverwrite Policy = "overwrite"
	PolicySuffix    Policy = "suffix"
	PolicyReject    Policy = "reject"
)

// ParsePolicy maps a config value to a Policy. Empty means overwrite.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "":
		return PolicyOverwrite, nil
	case PolicyOverwrite, PolicySuffix, PolicyReject:
		return p, nil
	}
	return "", fmt.Errorf("unknown collision policy %q", s)
}

// ProviderSource lists a user's active tool providers.
type ProviderSource interface {
	ActiveProviders(ctx context.Context, userID string) ([]domain.ToolProvider, error)
}

// Builder assembles a fresh Registry per request from the user's providers.
type Builder struct {
	Providers ProviderSource
	Client    toolprovider.Client
	Policy    Policy
	Log       *logging.Logger
}

// Build queries every active provider in order. A provider whose catalog
// cannot be fetched is logged and skipped.
func (b *Builder) Build(ctx context.Context, userID string) (reg *Registry, err error) {
	ctx, span := tracing.StartSpan(ctx, "tools.build", attribute.String("user.id", userID))
	defer func() { tracing.End(span, err) }()

	log := b.Log.With("user", userID)
	providers, err := b.Providers.ActiveProviders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}

	reg = newRegistry()
	for _, p := range providers {
		if !p.IsActive {
			continue
		}
		catalog, err := b.Client.Tools(ctx, p)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name).Msg("skipping provider, tool listing failed")
			continue
		}
		for _, mt := range catalog {
			t := &Tool{
				Name:        ExposedName(p.Name, mt.Name),
				Description: mt.Description,
				Parameters:  ObjectSchemaFrom(mt.InputSchema),
				Provider:    p,
				RemoteName:  mt.Name,
				client:      b.Client,
				log:         log,
			}
			b.add(reg, t, log)
		}
	}
	span.SetAttributes(attribute.Int("tools.count", reg.Len()))
	return reg, nil
}

func (b *Builder) add(reg *Registry, t *Tool, log *logging.Logger) {
	prev, exists := reg.tools[t.Name]
	if !exists {
		reg.tools[t.Name] = t
		return
	}
	switch b.Policy {
	case PolicyReject:
		log.Warn().Str("tool", t.Name).Str("kept", prev.Provider.Name).Str("dropped", t.Provider.Name).
			Msg("duplicate tool name rejected")
	case PolicySuffix:
		base := t.Name
		for i := 2; ; i++ {
			name := base + "_" + strconv.Itoa(i)
			if _, taken := reg.tools[name]; !taken {
				t.Name = name
				reg.tools[name] = t
				return
			}
		}
	default:
		log.Debug().Str("tool", t.Name).Str("replaced", prev.Provider.Name).Msg("duplicate tool name overwritten")
		reg.tools[t.Name] = t
	}
}
