package usecase

import (
	"fmt"
	"strings"

	"HangarWatch/internal/domain"
)

const promptHeader = `You are an expert analyst specializing in aviation hangar fire incidents. Your task is to analyze a new article and provide structured information about it.
`

const promptRequirements = `
ANALYSIS REQUIREMENTS:

1. **is_valid** (boolean):
   Include ONLY incidents that meet ALL of the following criteria:
   • Occurred in ACTIVE aircraft hangars (MRO, commercial, or military aviation)
   • Fire originated in OR affected the hangar structure or operations
   • Direct involvement of aircraft is noted, OR facility functions support aviation activity
   • Includes incidents involving malfunctioning or accidental discharge of foam fire suppression systems (e.g., AFFF, High Expansion foam, fire retardant foam) that directly impacts the facility or aircraft

   EXCLUDE:
   • Fires in decommissioned, repurposed or historic hangars (museums, galleries, event spaces)
   • Fires in storage-only buildings with no aircraft activity
   • Non-fire-related incidents (false alarms, power outages, maintenance issues)
   • Events related to accidental discharge if it does not involve aircraft or the suppression system causing a fire-related incident

   True only if the article describes a valid aviation hangar fire incident or accidental discharge event involving a malfunction of fire suppression systems.

2. **duplicate_of** (integer):
%s
   • Consider articles the same if they describe the same fire event (same approximate location and date), even with different details

3. **airport_hangar_name** (string):
   • Extract the specific name of the airport, airfield, or hangar facility
   • Include official designations, codes, or proper names
   • Return empty string if not specified

4. **country_region** (string):
   • Extract the country where the incident occurred
   • If country not clear, provide the region/state/province
   • Use standard country names (e.g., "United States", "United Kingdom")
   • Return empty string if not specified

RESPONSE FORMAT:
Return ONLY a valid JSON object with this exact structure:
{
    "is_valid": boolean,
    "duplicate_of": integer,
    "airport_hangar_name": "string",
    "country_region": "string"
}

Be thorough in your analysis and ensure accuracy in classification.`

// BuildClassificationPrompt renders the one-shot prompt comparing a candidate against its neighbors.
// Neighbors are labelled with their incident ids so the answer references ids, not positions.
func BuildClassificationPrompt(c domain.Candidate, neighbors []domain.Neighbor) string {
	var b strings.Builder
	b.WriteString(promptHeader)

	b.WriteString("\nEXISTING INCIDENTS FOR COMPARISON:\n")
	if len(neighbors) == 0 {
		b.WriteString("(none: no stored incident is similar to this article)\n")
	}
	for _, n := range neighbors {
		inc := n.Incident
		fmt.Fprintf(&b, "\nIncident ID: %d\n", inc.ID)
		fmt.Fprintf(&b, "Title: %s\n", inc.Title)
		fmt.Fprintf(&b, "Article Date: %s\n", domain.Value(inc.PublishedAt))
		fmt.Fprintf(&b, "Article Links: %s\n", strings.Join(inc.URLs, ", "))
		fmt.Fprintf(&b, "Location: %s\n", inc.Location)
		fmt.Fprintf(&b, "Airport / Hangar: %s\n", inc.AirportHangarName)
		fmt.Fprintf(&b, "Content: %s\n", domain.Value(inc.Content))
	}

	b.WriteString("\nNEW ARTICLE TO ANALYZE:\n")
	fmt.Fprintf(&b, "Title: %s\n", c.Title)
	fmt.Fprintf(&b, "Article Date: %s\n", domain.Value(c.PublishedAt))
	fmt.Fprintf(&b, "Article Links: %s\n", c.URL)
	fmt.Fprintf(&b, "Location: %s\n", domain.Value(c.Location))
	fmt.Fprintf(&b, "Description: %s\n", domain.Value(c.Description))
	fmt.Fprintf(&b, "Content: %s\n", domain.Value(c.Content))

	fmt.Fprintf(&b, promptRequirements, duplicateInstructions(neighbors))
	return b.String()
}

func duplicateInstructions(neighbors []domain.Neighbor) string {
	if len(neighbors) == 0 {
		return "   • There are no existing incidents, so return 0 (this is a NEW incident)"
	}
	ids := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		ids = append(ids, fmt.Sprint(n.Incident.ID))
	}
	return fmt.Sprintf("   • Return 0 if this is a NEW incident\n"+
		"   • Return the Incident ID (one of %s) if it describes the same incident as that existing incident",
		strings.Join(ids, ", "))
}
