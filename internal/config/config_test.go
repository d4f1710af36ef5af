package config

import "testing"

const staticDoc = `{
	"root": {"type": "static", "address": "private.moneyd", "asset_scale": 9, "asset_code": "XRP"},
	"peers": [
		{"kind": "child", "account_name": "alice", "address_suffix": "alice", "auth_tokens": ["T"]}
	],
	"routes": {
		"private.moneyd.": [
			{"next_hop": {"endpoint": "http://up:3000", "auth_token": "U"}}
		]
	}
}`

const arrayRoutesDoc = `{
	"root": {"type": "static", "address": "private.moneyd", "asset_scale": 9, "asset_code": "XRP"},
	"peers": [
		{"kind": "child", "account_name": "alice", "address_suffix": "alice", "auth_tokens": ["T"]}
	],
	"routes": [
		{"target_prefix": "private.moneyd.", "sub_routes": [
			{"next_hop": {"endpoint": "http://up:3000", "auth_token": "U"}}
		]}
	]
}`

const dynamicDoc = `{
	"root": {"type": "dynamic", "parent_endpoint": "http://parent:4000", "parent_auth": "P"},
	"peers": [],
	"routes": {}
}`

func TestLoadStaticRootMapRoutes(t *testing.T) {
	c, err := Load([]byte(staticDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.RootStatic == nil || c.RootStatic.Address != "private.moneyd" {
		t.Fatalf("unexpected static root: %+v", c.RootStatic)
	}
	if c.RootDynamic != nil {
		t.Error("expected no dynamic root for a static document")
	}
	entry, ok := c.Routes.Match("private.moneyd.bob")
	if !ok || len(entry.SubRoutes) != 1 {
		t.Fatalf("expected one matching sub-route, got %+v, ok=%v", entry, ok)
	}
	if entry.SubRoutes[0].Partition != 1.0 {
		t.Errorf("expected default partition 1.0, got %v", entry.SubRoutes[0].Partition)
	}
	if _, ok := c.Peers.Identify("T"); !ok {
		t.Error("expected configured token to be recognized")
	}
}

func TestLoadArrayRoutes(t *testing.T) {
	c, err := Load([]byte(arrayRoutesDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.Routes.Match("private.moneyd.bob"); !ok {
		t.Fatal("expected array-form routes to compile to a matching table")
	}
}

func TestLoadDynamicRoot(t *testing.T) {
	c, err := Load([]byte(dynamicDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.RootDynamic == nil || c.RootDynamic.ParentEndpoint != "http://parent:4000" {
		t.Fatalf("unexpected dynamic root: %+v", c.RootDynamic)
	}
	if c.RootStatic != nil {
		t.Error("expected no static root for a dynamic document")
	}
}

func TestLoadRejectsMultipleParents(t *testing.T) {
	doc := `{
		"root": {"type": "static", "address": "private.moneyd", "asset_scale": 9, "asset_code": "XRP"},
		"peers": [
			{"kind": "parent", "account_name": "a", "auth_tokens": ["T1"]},
			{"kind": "parent", "account_name": "b", "auth_tokens": ["T2"]}
		],
		"routes": {"private.moneyd.": [{"next_hop": {"endpoint": "http://up", "auth_token": "U"}}]}
	}`
	if _, err := Load([]byte(doc)); err == nil {
		t.Fatal("expected an error for more than one parent peer")
	}
}

func TestLoadRejectsChildWithEmptySuffix(t *testing.T) {
	doc := `{
		"root": {"type": "static", "address": "private.moneyd", "asset_scale": 9, "asset_code": "XRP"},
		"peers": [
			{"kind": "child", "account_name": "alice", "auth_tokens": ["T"]}
		],
		"routes": {"private.moneyd.": [{"next_hop": {"endpoint": "http://up", "auth_token": "U"}}]}
	}`
	if _, err := Load([]byte(doc)); err == nil {
		t.Fatal("expected an error for a child peer with no address_suffix")
	}
}

func TestLoadRejectsChildWithDottedSuffix(t *testing.T) {
	doc := `{
		"root": {"type": "static", "address": "private.moneyd", "asset_scale": 9, "asset_code": "XRP"},
		"peers": [
			{"kind": "child", "account_name": "alice", "address_suffix": "alice.bob", "auth_tokens": ["T"]}
		],
		"routes": {"private.moneyd.": [{"next_hop": {"endpoint": "http://up", "auth_token": "U"}}]}
	}`
	if _, err := Load([]byte(doc)); err == nil {
		t.Fatal("expected an error for a child peer whose address_suffix contains '.'")
	}
}

func TestLoadRejectsMissingAuthToken(t *testing.T) {
	doc := `{
		"root": {"type": "static", "address": "private.moneyd", "asset_scale": 9, "asset_code": "XRP"},
		"peers": [],
		"routes": {"private.moneyd.": [{"next_hop": {"endpoint": "http://up"}}]}
	}`
	if _, err := Load([]byte(doc)); err == nil {
		t.Fatal("expected an error for a next_hop with no auth_token")
	}
}

func TestLoadRejectsOutOfRangeFailRatio(t *testing.T) {
	doc := `{
		"root": {"type": "static", "address": "private.moneyd", "asset_scale": 9, "asset_code": "XRP"},
		"peers": [],
		"routes": {"private.moneyd.": [{
			"next_hop": {"endpoint": "http://up", "auth_token": "U"},
			"failover": {"window_size": 10, "fail_ratio": 1.5, "fail_duration_seconds": 30}
		}]}
	}`
	if _, err := Load([]byte(doc)); err == nil {
		t.Fatal("expected an error for a failover fail_ratio outside [0,1]")
	}
}

func TestLoadRejectsZeroTotalPartition(t *testing.T) {
	doc := `{
		"root": {"type": "static", "address": "private.moneyd", "asset_scale": 9, "asset_code": "XRP"},
		"peers": [],
		"routes": {"private.moneyd.": [{"next_hop": {"endpoint": "http://up", "auth_token": "U"}, "partition": 0}]}
	}`
	if _, err := Load([]byte(doc)); err == nil {
		t.Fatal("expected an error when every sub-route has a zero partition")
	}
}
