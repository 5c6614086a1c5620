package graph

import "testing"

func TestEventKey(t *testing.T) {
	tests := []struct {
		name     string
		event    string
		date     string
		location string
		want     string
	}{
		{
			name:     "fully specified",
			event:    "Quarterly Review",
			date:     "2001-05-14",
			location: "Houston",
			want:     "Quarterly Review-2001-05-14-Houston",
		},
		{
			name:  "missing date and location",
			event: "Board Meeting",
			want:  "Board Meeting-unknown-unknown",
		},
		{
			name:     "missing date only",
			event:    "Offsite",
			location: "Austin",
			want:     "Offsite-unknown-Austin",
		},
		{
			name:  "missing location only",
			event: "Audit",
			date:  "2001-11-02",
			want:  "Audit-2001-11-02-unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EventKey(tt.event, tt.date, tt.location)
			if got != tt.want {
				t.Errorf("EventKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
