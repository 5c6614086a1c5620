package ai

import (
	"reflect"
	"testing"
)

type extractionPayload struct {
	People []struct {
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"people"`
}

func TestUnmarshalFlexible(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "standard json",
			input: `{"people": [{"name": "Ada", "role": "counsel"}]}`,
			want:  "Ada",
		},
		{
			name:  "double encoded",
			input: `"{\"people\": [{\"name\": \"Ada\", \"role\": \"counsel\"}]}"`,
			want:  "Ada",
		},
		{
			name:  "unquoted keys repaired",
			input: `{people: [{name: "Ada", role: "counsel"}]}`,
			want:  "Ada",
		},
		{
			name:  "duplicated leading brace",
			input: `{{"people": [{"name": "Ada", "role": "counsel"}]}`,
			want:  "Ada",
		},
		{
			name:  "trailing comma repaired",
			input: `{"people": [{"name": "Ada", "role": "counsel"},]}`,
			want:  "Ada",
		},
		{
			name:    "hopeless input",
			input:   `not even close`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out extractionPayload
			err := UnmarshalFlexible(tt.input, &out)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(out.People) != 1 || out.People[0].Name != tt.want {
				t.Errorf("people = %#v, want one entry named %q", out.People, tt.want)
			}
		})
	}
}

func TestGenerateSchemaInlinesDefinitions(t *testing.T) {
	schema := GenerateSchema(&extractionPayload{})
	if schema == nil {
		t.Fatal("expected a schema")
	}
	v := reflect.ValueOf(schema)
	if v.Kind() == reflect.Pointer && v.IsNil() {
		t.Fatal("expected a non-nil schema")
	}
}
