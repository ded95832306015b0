// Package gm calls the generative model that narrates as the game master:
// NPC replies during encounters and roll requirements for player actions.
package gm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"

	dbmodels "d20adventures/db/models"
	"d20adventures/models"
)

// retryDelay is how long to wait before the single retry of a failed
// generation call.
const defaultRetryDelay = 2 * time.Second

// RollRequirement is the structured answer to "does this action need a
// dice roll". A nil requirement means no roll is needed.
type RollRequirement struct {
	RollType   string `json:"rollType"`
	Difficulty int    `json:"difficulty"`
}

// Client wraps the Gemini client. Constructed once at startup and passed
// down; handlers never build their own.
type Client struct {
	genai      *genai.Client
	model      string
	retryDelay time.Duration
}

// NewClient creates the game-master client.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}

	return &Client{genai: client, model: model, retryDelay: defaultRetryDelay}, nil
}

// GenerateNPCReply produces an NPC's in-character narrative action for the
// current encounter. A failed call is retried once after a fixed delay.
func (c *Client) GenerateNPCReply(ctx context.Context, encounter *models.Encounter, npc dbmodels.TurnCharacter, narrative string) (string, error) {
	prompt := BuildNPCPrompt(encounter, npc, narrative)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		log.Printf("[NPC_REPLY_RETRY] generation failed for %s, retrying once: %v", npc.Name, err)
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		resp, err = c.genai.Models.GenerateContent(ctx, c.model, contents, nil)
		if err != nil {
			return "", fmt.Errorf("failed to generate NPC reply for %s: %w", npc.Name, err)
		}
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", fmt.Errorf("empty NPC reply for %s", npc.Name)
	}

	return reply, nil
}

// GetRollRequirement asks whether a narrated action requires a dice roll.
// Returns nil when no roll is needed.
func (c *Client) GetRollRequirement(ctx context.Context, reply, character string) (*RollRequirement, error) {
	prompt := BuildRollRequirementPrompt(reply, character)
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, genConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate roll requirement: %w", err)
	}

	var parsed struct {
		RollRequired bool   `json:"rollRequired"`
		RollType     string `json:"rollType"`
		Difficulty   int    `json:"difficulty"`
	}
	if err := json.Unmarshal([]byte(resp.Text()), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse roll requirement response: %w", err)
	}

	if !parsed.RollRequired {
		return nil, nil
	}

	return &RollRequirement{RollType: parsed.RollType, Difficulty: parsed.Difficulty}, nil
}
