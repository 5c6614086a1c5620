package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/knothq/mailgraph/pkg/ai"
	"github.com/knothq/mailgraph/pkg/common"
	"github.com/knothq/mailgraph/pkg/email"
)

type extractPerson struct {
	Name         string `json:"name" jsonschema_description:"Full name of the person as written in the email"`
	Role         string `json:"role" jsonschema_description:"Role or job title of the person, empty if unknown"`
	Organization string `json:"organization" jsonschema_description:"Organization or company the person belongs to, empty if unknown"`
}

type extractPlace struct {
	Name string `json:"name" jsonschema_description:"Name of the place"`
	Type string `json:"type" jsonschema_description:"Kind of place, for example city, office or venue, empty if unknown"`
}

type extractEvent struct {
	Name     string `json:"name" jsonschema_description:"Short name of the event"`
	Date     string `json:"date" jsonschema_description:"Date of the event if mentioned, empty if unknown"`
	Location string `json:"location" jsonschema_description:"Location of the event if mentioned, empty if unknown"`
}

type extractRelationship struct {
	Source       string `json:"source" jsonschema_description:"Name of the source entity, exactly as listed above"`
	SourceType   string `json:"sourceType" jsonschema_description:"Kind of the source entity: person, place or event"`
	Relationship string `json:"relationship" jsonschema_description:"Relationship between source and target, for example WORKS_FOR or ATTENDED"`
	Target       string `json:"target" jsonschema_description:"Name of the target entity, exactly as listed above"`
	TargetType   string `json:"targetType" jsonschema_description:"Kind of the target entity: person, place or event"`
	Context      string `json:"context" jsonschema_description:"Short quote or paraphrase from the email supporting the relationship, empty if none"`
}

type extractResponse struct {
	People        []extractPerson       `json:"people" jsonschema_description:"People mentioned in the email"`
	Places        []extractPlace        `json:"places" jsonschema_description:"Places mentioned in the email"`
	Events        []extractEvent        `json:"events" jsonschema_description:"Events mentioned in the email"`
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"Relationships between the extracted entities"`
}

// ExtractEmail runs the extraction model over a single parsed email and
// returns the structured facts it reported.
func (g *GraphClient) ExtractEmail(
	ctx context.Context,
	mail email.Email,
	aiClient ai.GraphAIClient,
) (*common.Extraction, error) {
	body := g.truncateBody(mail.Body)
	prompt := fmt.Sprintf(
		ai.ExtractEmailPrompt,
		mail.Subject,
		formatAddress(mail.Sender.Name, mail.Sender.Email),
		formatRecipients(mail.Recipients),
		mail.Date,
		body,
	)

	var res extractResponse
	opts := []ai.GenerateOption{
		ai.WithSystemPrompts(ai.ExtractSystemPrompt),
	}
	err := aiClient.GenerateCompletionWithFormat(
		ctx,
		"extract_email_entities",
		"Extract people, places, events and relationships from an email.",
		prompt,
		&res,
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to extract entities from email %s: %w", mail.ID, err)
	}

	extraction := &common.Extraction{
		People:        make([]common.Person, 0, len(res.People)),
		Places:        make([]common.Place, 0, len(res.Places)),
		Events:        make([]common.Event, 0, len(res.Events)),
		Relationships: make([]common.Relationship, 0, len(res.Relationships)),
	}
	for _, p := range res.People {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		extraction.People = append(extraction.People, common.Person{
			Name:         p.Name,
			Role:         p.Role,
			Organization: p.Organization,
		})
	}
	for _, p := range res.Places {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		extraction.Places = append(extraction.Places, common.Place{
			Name: p.Name,
			Type: p.Type,
		})
	}
	for _, e := range res.Events {
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		extraction.Events = append(extraction.Events, common.Event{
			Name:     e.Name,
			Date:     e.Date,
			Location: e.Location,
		})
	}
	for _, r := range res.Relationships {
		if strings.TrimSpace(r.Source) == "" || strings.TrimSpace(r.Target) == "" {
			continue
		}
		extraction.Relationships = append(extraction.Relationships, common.Relationship{
			Source:       r.Source,
			SourceType:   r.SourceType,
			Relationship: r.Relationship,
			Target:       r.Target,
			TargetType:   r.TargetType,
			Context:      r.Context,
		})
	}

	return extraction, nil
}

// truncateBody trims the email body to the configured token budget using
// the client's tiktoken encoding. Bodies within budget pass through
// unchanged, as does everything when no budget is set or the encoding is
// unavailable.
func (g *GraphClient) truncateBody(body string) string {
	if g.maxPromptTokens <= 0 {
		return body
	}
	enc, err := tiktoken.GetEncoding(g.tokenEncoder)
	if err != nil {
		return body
	}
	tokens := enc.Encode(body, nil, nil)
	if len(tokens) <= g.maxPromptTokens {
		return body
	}
	return enc.Decode(tokens[:g.maxPromptTokens])
}

func formatAddress(name string, addr string) string {
	switch {
	case name != "" && addr != "":
		return fmt.Sprintf("%s <%s>", name, addr)
	case addr != "":
		return addr
	default:
		return name
	}
}

func formatRecipients(recipients []email.Recipient) string {
	parts := make([]string, 0, len(recipients))
	for _, r := range recipients {
		parts = append(parts, formatAddress(r.Name, r.Email))
	}
	return strings.Join(parts, ", ")
}
