// Package config decodes the relay's RELAY_CONFIG JSON document,
// applies defaults, validates it, and compiles it into the immutable
// runtime values the rest of the relay consumes: a peer registry, a
// route table, a failure-window registry, and root address
// configuration (static or ILDCP-resolved).
//
// The decode-then-default-then-validate pipeline is grounded on the
// pathvector config loaders in the reference pack
// (other_examples/c28c3233_zachomedia-pathvector__config.go.go and
// other_examples/8e78db99_samip5-pathvector__internal-config-config.go.go),
// both of which pair creasty/defaults with go-playground/validator over
// a routing-connector's JSON/YAML config.
package config

import (
	"encoding/json"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/coilhq/interledger-relay/internal/debuglog"
	"github.com/coilhq/interledger-relay/internal/failure"
	"github.com/coilhq/interledger-relay/internal/ilpaddr"
	"github.com/coilhq/interledger-relay/internal/peer"
	"github.com/coilhq/interledger-relay/internal/route"
	"github.com/coilhq/interledger-relay/internal/selector"
)

// RootSpec is the root-config section of RELAY_CONFIG: either a static
// address/asset triple or a Dynamic ILDCP-resolved one, distinguished
// by Type (spec.md §3 "Root config ... Either supplied statically or
// produced by the address resolver").
type RootSpec struct {
	Type           string `json:"type" validate:"required,oneof=static dynamic"`
	Address        string `json:"address" validate:"required_if=Type static"`
	AssetScale     uint8  `json:"asset_scale" validate:"required_if=Type static,lte=18"`
	AssetCode      string `json:"asset_code" validate:"required_if=Type static,omitempty,min=3,max=6"`
	ParentEndpoint string `json:"parent_endpoint" validate:"required_if=Type dynamic,omitempty,url"`
	ParentAuth     string `json:"parent_auth" validate:"required_if=Type dynamic"`
}

// PeerSpec is one configured peer (spec.md §3 "Peer record").
type PeerSpec struct {
	Kind          string   `json:"kind" validate:"required,oneof=parent child sibling"`
	AccountName   string   `json:"account_name" validate:"required"`
	AddressSuffix string   `json:"address_suffix" validate:"excluded_if=Kind parent,excluded_if=Kind sibling"`
	AuthTokens    []string `json:"auth_tokens" validate:"required,min=1,dive,required"`
}

// NextHopSpec is a sub-route's forwarding target: exactly one of the
// Bilateral or Multilateral field groups must be populated.
type NextHopSpec struct {
	Endpoint  string `json:"endpoint"`
	AuthToken string `json:"auth_token" validate:"required"`

	EndpointPrefix string `json:"endpoint_prefix"`
	EndpointSuffix string `json:"endpoint_suffix"`
}

// FailoverSpec configures when a sub-route is suppressed after
// repeated failures (spec.md §3 "Sub-route ... failover?").
type FailoverSpec struct {
	WindowSize          uint32  `json:"window_size" validate:"required,gt=0"`
	FailRatio           float64 `json:"fail_ratio" validate:"gte=0,lte=1"`
	FailDurationSeconds float64 `json:"fail_duration_seconds" validate:"gt=0"`
}

// SubRouteSpec is one candidate forwarding target under a route entry.
type SubRouteSpec struct {
	NextHop NextHopSpec `json:"next_hop" validate:"required"`
	// Partition is a pointer so an explicit 0 can be told apart from an
	// omitted field, which creasty/defaults would otherwise overwrite.
	Partition *float64      `json:"partition" default:"1.0" validate:"omitempty,gte=0"`
	Failover  *FailoverSpec `json:"failover"`
}

// partition returns the configured partition weight, defaulting to 1.0
// if somehow left nil after defaulting.
func (s SubRouteSpec) partition() float64 {
	if s.Partition == nil {
		return 1.0
	}
	return *s.Partition
}

// RouteEntrySpec is one route entry in the array form of the routes
// field (spec.md §6: "array of {target_prefix, …}").
type RouteEntrySpec struct {
	TargetPrefix string         `json:"target_prefix" validate:"required"`
	SubRoutes    []SubRouteSpec `json:"sub_routes" validate:"required,min=1,dive"`
}

// DebugServiceSpec controls optional request/response logging
// (spec.md §4.9).
type DebugServiceSpec struct {
	LogPrepare bool `json:"log_prepare" default:"false"`
	LogFulfill bool `json:"log_fulfill" default:"false"`
	LogReject  bool `json:"log_reject" default:"false"`
}

// Document is the full RELAY_CONFIG JSON shape.
type Document struct {
	Root      RootSpec   `json:"root" validate:"required"`
	Peers     []PeerSpec `json:"peers" validate:"dive"`
	Relatives []PeerSpec `json:"relatives" validate:"dive"`

	Routes json.RawMessage `json:"routes" validate:"required"`

	RoutingPartition string `json:"routing_partition" default:"Destination" validate:"oneof=Destination ExecutionCondition"`

	DebugService DebugServiceSpec `json:"debug_service"`

	ServerMaxDurationSeconds float64 `json:"server_max_duration_seconds" default:"30"`
}

// Compiled is the runtime form of a Document: everything internal/relay
// needs to start serving traffic.
type Compiled struct {
	Peers    *peer.Registry
	Routes   *route.Table
	Failures *failure.Registry

	RootStatic  *StaticRoot
	RootDynamic *DynamicRoot

	PartitionKind     selector.PartitionKeyKind
	Debug             debuglog.Options
	ServerMaxDuration time.Duration
}

// StaticRoot is a root address supplied directly in configuration.
type StaticRoot struct {
	Address    ilpaddr.Address
	AssetScale uint8
	AssetCode  string
}

// DynamicRoot is a root address to be resolved via ILDCP at startup.
type DynamicRoot struct {
	ParentEndpoint string
	ParentAuth     string
}

var validate = validator.New()

// Load decodes, defaults, validates, and compiles a RELAY_CONFIG
// document from raw JSON bytes.
func Load(raw []byte) (*Compiled, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, pkgerrors.Wrap(err, "config: invalid json")
	}
	if err := defaults.Set(&doc); err != nil {
		return nil, pkgerrors.Wrap(err, "config: could not apply defaults")
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, pkgerrors.Wrap(err, "config: validation failed")
	}

	entries, err := parseRoutes(doc.Routes)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "config: invalid routes")
	}
	if err := validateRouteEntries(entries); err != nil {
		return nil, err
	}

	records := make([]peer.Record, 0, len(doc.Peers)+len(doc.Relatives))
	for _, list := range [][]PeerSpec{doc.Peers, doc.Relatives} {
		for _, p := range list {
			records = append(records, peer.Record{
				Kind:          parseKind(p.Kind),
				AccountName:   p.AccountName,
				AddressSuffix: p.AddressSuffix,
				AuthTokens:    p.AuthTokens,
			})
		}
	}
	if err := validatePeerRecords(records); err != nil {
		return nil, err
	}

	compiled := &Compiled{
		Peers:    peer.NewRegistry(records),
		Routes:   route.NewTable(entries),
		Failures: failure.NewRegistry(entries),
		Debug: debuglog.Options{
			LogPrepare: doc.DebugService.LogPrepare,
			LogFulfill: doc.DebugService.LogFulfill,
			LogReject:  doc.DebugService.LogReject,
		},
		ServerMaxDuration: time.Duration(doc.ServerMaxDurationSeconds * float64(time.Second)),
	}
	if doc.RoutingPartition == "ExecutionCondition" {
		compiled.PartitionKind = selector.PartitionByExecutionCondition
	} else {
		compiled.PartitionKind = selector.PartitionByDestination
	}

	if doc.Root.Type == "dynamic" {
		compiled.RootDynamic = &DynamicRoot{
			ParentEndpoint: doc.Root.ParentEndpoint,
			ParentAuth:     doc.Root.ParentAuth,
		}
	} else {
		addr := ilpaddr.Address(doc.Root.Address)
		if !addr.Valid() {
			return nil, pkgerrors.Errorf("config: invalid static root address %q", doc.Root.Address)
		}
		compiled.RootStatic = &StaticRoot{
			Address:    addr,
			AssetScale: doc.Root.AssetScale,
			AssetCode:  doc.Root.AssetCode,
		}
	}

	return compiled, nil
}

func parseKind(s string) peer.Kind {
	switch s {
	case "parent":
		return peer.Parent
	case "sibling":
		return peer.Sibling
	default:
		return peer.Child
	}
}
