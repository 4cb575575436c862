package ai

import (
	"fmt"
	"strings"
)

// buildCategoryPrompt renders the categorization prompt. The model must
// answer with a single JSON object and may only pick from the supplied
// category list.
func buildCategoryPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You classify grocery receipt line items into categories.\n")
	b.WriteString("Respond with a single JSON object: {\"category\": <string or null>, \"confidence\": <number 0..1>}.\n")
	b.WriteString("Pick the category ONLY from this list, or use null if none fits:\n")
	for _, c := range req.Categories {
		fmt.Fprintf(&b, "- %s\n", c)
	}

	fmt.Fprintf(&b, "\nReceipt line item text: %q\n", req.Text)
	if req.CategoryHint != "" {
		fmt.Fprintf(&b, "OCR category hint: %q\n", req.CategoryHint)
	}
	if req.ShopID != "" {
		fmt.Fprintf(&b, "Shop: %q\n", req.ShopID)
	}

	b.WriteString("\nConfidence must reflect how certain you are that the chosen category is correct.")

	return b.String()
}
