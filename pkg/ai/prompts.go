package ai

// ExtractSystemPrompt frames the extraction model's role for email corpora.
const ExtractSystemPrompt = `You are an expert entity extractor for legal emails.`

// ExtractEmailPrompt is the per-email extraction prompt. Placeholders:
// subject, sender, recipients, date, body.
const ExtractEmailPrompt = `Extract all people, places, events, and their relationships from the following email:

EMAIL SUBJECT: %s
FROM: %s
TO: %s
DATE: %s
BODY:
%s

Only extract entities that are explicitly mentioned. Ensure all names and identifiers are consistent across the response.
Extract events even if they are tentative, and if something is asked of someone, create an event for that, but clarify whether it has occurred or not.
Do your best to create relationships for events; the FROM and TO fields can help identify sources and targets.`
