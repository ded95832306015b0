package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"d20adventures/db/models"
)

// TurnUpdate is a partial update to a turn document. Nil fields are left
// untouched.
type TurnUpdate struct {
	Title      *string
	Subtitle   *string
	Narrative  *string
	Characters *[]models.TurnCharacter
}

// InsertTurn creates a new turn and returns its id. A duplicate
// (adventure, order) pair is rejected with ErrTurnExists; the unique index
// does the check, so two concurrent writers cannot both succeed.
func (s *Store) InsertTurn(ctx context.Context, turn *models.TurnDocument) (primitive.ObjectID, error) {
	turn.CreatedAt = time.Now()
	turn.UpdatedAt = turn.CreatedAt

	result, err := s.collection("turns").InsertOne(ctx, turn)
	if mongo.IsDuplicateKeyError(err) {
		return primitive.NilObjectID, fmt.Errorf("adventure %s order %d: %w",
			turn.AdventureID.Hex(), turn.Order, ErrTurnExists)
	}
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to insert turn: %w", err)
	}

	return result.InsertedID.(primitive.ObjectID), nil
}

// GetTurn fetches a turn by its hex id.
func (s *Store) GetTurn(ctx context.Context, turnID string) (*models.TurnDocument, error) {
	objID, err := primitive.ObjectIDFromHex(turnID)
	if err != nil {
		return nil, fmt.Errorf("invalid turn id %q: %w", turnID, ErrNotFound)
	}

	var turn models.TurnDocument
	err = s.collection("turns").FindOne(ctx, bson.M{"_id": objID}).Decode(&turn)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("turn %s: %w", turnID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch turn %s: %w", turnID, err)
	}

	return &turn, nil
}

// UpdateTurn applies a partial update to a turn document.
func (s *Store) UpdateTurn(ctx context.Context, turnID string, update TurnUpdate) error {
	objID, err := primitive.ObjectIDFromHex(turnID)
	if err != nil {
		return fmt.Errorf("invalid turn id %q: %w", turnID, ErrNotFound)
	}

	set := bson.M{"updated_at": time.Now()}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Subtitle != nil {
		set["subtitle"] = *update.Subtitle
	}
	if update.Narrative != nil {
		set["narrative"] = *update.Narrative
	}
	if update.Characters != nil {
		set["characters"] = *update.Characters
	}

	result, err := s.collection("turns").UpdateByID(ctx, objID, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update turn %s: %w", turnID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("turn %s: %w", turnID, ErrNotFound)
	}

	return nil
}

// ClaimNPCTurn attempts to claim an NPC's pending action with a single
// conditional update: it matches only while the character has not replied and
// is not already claimed, and flips the processing flag in the same write.
// Exactly one of any number of concurrent callers observes claimed == true.
func (s *Store) ClaimNPCTurn(ctx context.Context, turnID, characterID string) (bool, error) {
	objID, err := primitive.ObjectIDFromHex(turnID)
	if err != nil {
		return false, fmt.Errorf("invalid turn id %q: %w", turnID, ErrNotFound)
	}

	filter := bson.M{
		"_id": objID,
		"characters": bson.M{
			"$elemMatch": bson.M{
				"id":          characterID,
				"has_replied": false,
				"processing":  false,
			},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"characters.$.processing": true,
			"updated_at":              time.Now(),
		},
	}

	result, err := s.collection("turns").UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to claim NPC turn %s: %w", turnID, err)
	}

	return result.ModifiedCount == 1, nil
}

// RecordNPCReply appends the generated reply to the turn narrative and marks
// the character as replied, releasing the processing claim.
func (s *Store) RecordNPCReply(ctx context.Context, turnID, characterID, reply string) error {
	objID, err := primitive.ObjectIDFromHex(turnID)
	if err != nil {
		return fmt.Errorf("invalid turn id %q: %w", turnID, ErrNotFound)
	}

	turn, err := s.GetTurn(ctx, turnID)
	if err != nil {
		return err
	}

	narrative := turn.Narrative
	if narrative != "" {
		narrative += "\n\n"
	}
	narrative += reply

	filter := bson.M{"_id": objID, "characters.id": characterID}
	update := bson.M{
		"$set": bson.M{
			"narrative":                narrative,
			"characters.$.has_replied": true,
			"characters.$.processing":  false,
			"updated_at":               time.Now(),
		},
	}

	result, err := s.collection("turns").UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to record NPC reply on turn %s: %w", turnID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("turn %s character %s: %w", turnID, characterID, ErrNotFound)
	}

	return nil
}

// ReleaseNPCClaim clears the processing flag without marking the character as
// replied. Used when reply generation fails so a later call can retry.
func (s *Store) ReleaseNPCClaim(ctx context.Context, turnID, characterID string) error {
	objID, err := primitive.ObjectIDFromHex(turnID)
	if err != nil {
		return fmt.Errorf("invalid turn id %q: %w", turnID, ErrNotFound)
	}

	filter := bson.M{"_id": objID, "characters.id": characterID}
	update := bson.M{"$set": bson.M{"characters.$.processing": false}}

	if _, err := s.collection("turns").UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to release NPC claim on turn %s: %w", turnID, err)
	}

	return nil
}

// MarkCharacterComplete sets a character's completion flag on a turn.
func (s *Store) MarkCharacterComplete(ctx context.Context, turnID, characterID string) error {
	objID, err := primitive.ObjectIDFromHex(turnID)
	if err != nil {
		return fmt.Errorf("invalid turn id %q: %w", turnID, ErrNotFound)
	}

	filter := bson.M{"_id": objID, "characters.id": characterID}
	update := bson.M{
		"$set": bson.M{
			"characters.$.is_complete": true,
			"updated_at":               time.Now(),
		},
	}

	result, err := s.collection("turns").UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark character complete on turn %s: %w", turnID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("turn %s character %s: %w", turnID, characterID, ErrNotFound)
	}

	return nil
}
