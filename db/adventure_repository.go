package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"d20adventures/db/models"
)

// AdventurePatch is a partial update to an adventure document. Nil fields are
// left untouched.
type AdventurePatch struct {
	Status        *string
	CurrentTurnID *primitive.ObjectID
	StartedAt     *time.Time
	EndedAt       *time.Time
	Party         *[]models.PartyCharacter
	Title         *string
}

// InsertAdventure creates a new adventure and returns its id.
func (s *Store) InsertAdventure(ctx context.Context, adventure *models.AdventureDocument) (primitive.ObjectID, error) {
	adventure.CreatedAt = time.Now()

	result, err := s.collection("adventures").InsertOne(ctx, adventure)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to insert adventure: %w", err)
	}

	return result.InsertedID.(primitive.ObjectID), nil
}

// GetAdventure fetches an adventure by its hex id.
func (s *Store) GetAdventure(ctx context.Context, adventureID string) (*models.AdventureDocument, error) {
	objID, err := primitive.ObjectIDFromHex(adventureID)
	if err != nil {
		return nil, fmt.Errorf("invalid adventure id %q: %w", adventureID, ErrNotFound)
	}

	var adventure models.AdventureDocument
	err = s.collection("adventures").FindOne(ctx, bson.M{"_id": objID}).Decode(&adventure)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("adventure %s: %w", adventureID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch adventure %s: %w", adventureID, err)
	}

	return &adventure, nil
}

// ListAdventuresByUser returns the adventures a user owns or plays in, newest
// first.
func (s *Store) ListAdventuresByUser(ctx context.Context, userID string) ([]models.AdventureDocument, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"owner_user_id": userID},
		bson.M{"party.user_id": userID},
	}}

	sort := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.collection("adventures").Find(ctx, filter, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list adventures for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var adventures []models.AdventureDocument
	if err := cursor.All(ctx, &adventures); err != nil {
		return nil, fmt.Errorf("failed to decode adventures: %w", err)
	}

	return adventures, nil
}

// PatchAdventure applies a partial update to an adventure document.
func (s *Store) PatchAdventure(ctx context.Context, adventureID string, patch AdventurePatch) error {
	objID, err := primitive.ObjectIDFromHex(adventureID)
	if err != nil {
		return fmt.Errorf("invalid adventure id %q: %w", adventureID, ErrNotFound)
	}

	set := bson.M{}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.CurrentTurnID != nil {
		set["current_turn_id"] = *patch.CurrentTurnID
	}
	if patch.StartedAt != nil {
		set["started_at"] = *patch.StartedAt
	}
	if patch.EndedAt != nil {
		set["ended_at"] = *patch.EndedAt
	}
	if patch.Party != nil {
		set["party"] = *patch.Party
	}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if len(set) == 0 {
		return nil
	}

	result, err := s.collection("adventures").UpdateByID(ctx, objID, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to patch adventure %s: %w", adventureID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("adventure %s: %w", adventureID, ErrNotFound)
	}

	return nil
}

// AddPartyCharacter appends a player character to an adventure's party.
func (s *Store) AddPartyCharacter(ctx context.Context, adventureID string, character models.PartyCharacter) error {
	objID, err := primitive.ObjectIDFromHex(adventureID)
	if err != nil {
		return fmt.Errorf("invalid adventure id %q: %w", adventureID, ErrNotFound)
	}

	result, err := s.collection("adventures").UpdateByID(ctx, objID, bson.M{
		"$push": bson.M{"party": character},
	})
	if err != nil {
		return fmt.Errorf("failed to add party character to adventure %s: %w", adventureID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("adventure %s: %w", adventureID, ErrNotFound)
	}

	return nil
}
