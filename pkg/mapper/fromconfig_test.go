package mapper

import (
	"testing"

	"github.com/fw16synth/fw16synth/pkg/config"
	"github.com/fw16synth/fw16synth/pkg/input"
)

func TestFromConfigEmptyReturnsDefaultTable(t *testing.T) {
	table, err := FromConfig(config.MappingFile{})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if table.Control(input.RawKey(0x39)) != RoleSustain { // KEY_SPACE
		t.Error("FromConfig({}) did not fall back to DefaultTable")
	}
}

func TestFromConfigBuildsTableFromEntries(t *testing.T) {
	mf := config.MappingFile{
		Notes:    []config.MappingNote{{Raw: 30, Offset: -12, Row: "home"}},
		Controls: []config.MappingControl{{Raw: 1, Role: "panic"}},
	}
	table, err := FromConfig(mf)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if table.RowOf(30) != RowHome {
		t.Errorf("RowOf(30) = %v, want RowHome", table.RowOf(30))
	}
	if table.Control(1) != RolePanic {
		t.Errorf("Control(1) = %v, want RolePanic", table.Control(1))
	}
}

func TestFromConfigRejectsUnknownRole(t *testing.T) {
	mf := config.MappingFile{Controls: []config.MappingControl{{Raw: 1, Role: "levitate"}}}
	if _, err := FromConfig(mf); err == nil {
		t.Error("FromConfig() with unknown role returned no error")
	}
}
