package seeddata

import "testing"

func TestLoadParsesEmbeddedBundle(t *testing.T) {
	templates, hosts, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(hosts) == 0 {
		t.Fatal("expected at least one embedded host")
	}
	if len(templates) == 0 {
		t.Fatal("expected at least one embedded template")
	}

	tmpl := templates[0]
	if tmpl.ID == "" {
		t.Error("template missing ID")
	}
	if len(tmpl.Steps) == 0 {
		t.Error("template has no steps")
	}
	for _, s := range tmpl.Steps {
		if err := s.Validate(); err != nil {
			t.Errorf("step %d fails validation: %v", s.Index, err)
		}
	}

	if tmpl.HostID == nil || *tmpl.HostID != hosts[0].ID {
		t.Errorf("template host_id = %v, want pointer to %q", tmpl.HostID, hosts[0].ID)
	}
}
