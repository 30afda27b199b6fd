package ingest

import (
	"testing"

	"github.com/paulmach/osm"

	"osmeditor/pkg/store"
)

func TestConvertTags(t *testing.T) {
	in := osm.Tags{{Key: "highway", Value: "primary"}, {Key: "name", Value: "Main St"}}
	out := convertTags(in)
	want := []store.Tag{{Key: "highway", Value: "primary"}, {Key: "name", Value: "Main St"}}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("tag %d = %+v, want %+v", i, out[i], want[i])
		}
	}
}

func TestConvertTagsEmpty(t *testing.T) {
	if got := convertTags(nil); got != nil {
		t.Errorf("convertTags(nil) = %v, want nil", got)
	}
}

func TestConvertMembers(t *testing.T) {
	in := osm.Members{
		{Type: osm.TypeWay, Ref: 10, Role: "outer"},
		{Type: osm.TypeWay, Ref: 11, Role: "inner"},
		{Type: osm.TypeNode, Ref: 1, Role: "label"},
		{Type: osm.TypeRelation, Ref: 5, Role: "subarea"},
	}
	out := convertMembers(in)
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	if out[0].Kind != store.MemberWay || out[0].Ref != 10 || out[0].Role != "outer" {
		t.Errorf("member 0 = %+v", out[0])
	}
	if out[2].Kind != store.MemberNode || out[2].Ref != 1 {
		t.Errorf("member 2 = %+v", out[2])
	}
	if out[3].Kind != store.MemberRelation || out[3].Ref != 5 {
		t.Errorf("member 3 = %+v", out[3])
	}
}
