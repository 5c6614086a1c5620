package common

// Extraction holds everything the extraction model derived from a single
// email: the entities it mentions and the relationships between them.
//
// An Extraction is produced once per email and consumed exactly once by the
// merge engine; it is not retained afterward.
type Extraction struct {
	People        []Person       `json:"people"`
	Places        []Place        `json:"places"`
	Events        []Event        `json:"events"`
	Relationships []Relationship `json:"relationships"`
}

// Person is a person fact. Name is the identity key; Role and Organization
// are optional attributes, empty when the source email did not mention them.
type Person struct {
	Name         string `json:"name"`
	Role         string `json:"role,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// Place is a location fact. Name is the identity key; Type (office, city,
// country, ...) is optional.
type Place struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Event is an event fact. Events have no natural identity key; the merge
// engine derives one from Name, Date and Location.
type Event struct {
	Name     string `json:"name"`
	Date     string `json:"date,omitempty"`
	Location string `json:"location,omitempty"`
}

// Relationship is a directed, typed assertion between two named entities.
// SourceType and TargetType are coarse kinds (person, place or event) used
// to resolve the endpoints; Relationship is a free-text label; Context is an
// optional explanation taken from the email.
type Relationship struct {
	Source       string `json:"source"`
	SourceType   string `json:"sourceType"`
	Relationship string `json:"relationship"`
	Target       string `json:"target"`
	TargetType   string `json:"targetType"`
	Context      string `json:"context,omitempty"`
}
