package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"d20adventures/models"
)

// ErrDocumentNotFound is returned when a requested object does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore reads and writes plan, setting, and character-template JSON
// documents in object storage. Plans and settings are validated at this
// boundary; malformed documents never reach domain logic.
type DocumentStore struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// NewDocumentStore connects to the object storage endpoint.
func NewDocumentStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*DocumentStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	return &DocumentStore{client: client, bucket: bucket, now: time.Now}, nil
}

// LoadPlan fetches and validates an adventure plan document. When the object
// is absent, bundled seed plans are consulted before reporting not-found.
func (d *DocumentStore) LoadPlan(ctx context.Context, settingID, planID string) (*models.AdventurePlan, error) {
	var plan models.AdventurePlan
	err := d.getJSON(ctx, PlanKey(settingID, planID), &plan)
	if errors.Is(err, ErrDocumentNotFound) {
		if seeded, ok := SeedPlan(settingID, planID); ok {
			return seeded, nil
		}
		return nil, fmt.Errorf("plan %s/%s: %w", settingID, planID, ErrDocumentNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("plan %s/%s is malformed: %w", settingID, planID, err)
	}

	return &plan, nil
}

// SavePlan validates and writes a plan document. If the key already holds a
// document, a timestamped backup copy is written first.
func (d *DocumentStore) SavePlan(ctx context.Context, settingID string, plan *models.AdventurePlan) error {
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("refusing to save malformed plan: %w", err)
	}

	key := PlanKey(settingID, plan.ID)
	if err := d.backupIfExists(ctx, key, PlanBackupKey(settingID, plan.ID, d.now())); err != nil {
		return err
	}

	return d.putJSON(ctx, key, plan)
}

// ListPlans returns the plan documents stored under a setting. Backups are
// skipped, as is the setting-data document itself.
func (d *DocumentStore) ListPlans(ctx context.Context, settingID string) ([]models.AdventurePlan, error) {
	prefix := fmt.Sprintf("settings/%s/", settingID)

	plans := []models.AdventurePlan{}
	for object := range d.client.ListObjects(ctx, d.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list plans for setting %s: %w", settingID, object.Err)
		}
		name := path.Base(object.Key)
		if !strings.HasSuffix(name, ".json") || name == "setting-data.json" {
			continue
		}
		planID := strings.TrimSuffix(name, ".json")

		plan, err := d.LoadPlan(ctx, settingID, planID)
		if err != nil {
			log.Printf("[PLAN_LIST] skipping unreadable plan %s/%s: %v", settingID, planID, err)
			continue
		}
		plans = append(plans, *plan)
	}

	return plans, nil
}

// LoadSetting fetches and validates a setting's world data document.
func (d *DocumentStore) LoadSetting(ctx context.Context, settingID string) (*models.Setting, error) {
	var setting models.Setting
	if err := d.getJSON(ctx, SettingKey(settingID), &setting); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, fmt.Errorf("setting %s: %w", settingID, ErrDocumentNotFound)
		}
		return nil, err
	}

	if err := setting.Validate(); err != nil {
		return nil, fmt.Errorf("setting %s is malformed: %w", settingID, err)
	}

	return &setting, nil
}

// SaveSetting validates and writes a setting document, backing up any
// existing document first.
func (d *DocumentStore) SaveSetting(ctx context.Context, setting *models.Setting) error {
	if err := setting.Validate(); err != nil {
		return fmt.Errorf("refusing to save malformed setting: %w", err)
	}

	key := SettingKey(setting.ID)
	if err := d.backupIfExists(ctx, key, SettingBackupKey(setting.ID, d.now())); err != nil {
		return err
	}

	return d.putJSON(ctx, key, setting)
}

// LoadCharacter fetches a user's character template.
func (d *DocumentStore) LoadCharacter(ctx context.Context, userID, slug string) (*models.CharacterTemplate, error) {
	var character models.CharacterTemplate
	if err := d.getJSON(ctx, CharacterKey(userID, slug), &character); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, fmt.Errorf("character %s/%s: %w", userID, slug, ErrDocumentNotFound)
		}
		return nil, err
	}
	return &character, nil
}

// SaveCharacter writes a user's character template.
func (d *DocumentStore) SaveCharacter(ctx context.Context, character *models.CharacterTemplate) error {
	if character.UserID == "" || character.Slug == "" {
		return fmt.Errorf("character template requires userId and slug")
	}
	return d.putJSON(ctx, CharacterKey(character.UserID, character.Slug), character)
}

func (d *DocumentStore) getJSON(ctx context.Context, key string, out any) error {
	object, err := d.client.GetObject(ctx, d.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return fmt.Errorf("%s: %w", key, ErrDocumentNotFound)
		}
		return fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}

	return nil
}

func (d *DocumentStore) putJSON(ctx context.Context, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	_, err = d.client.PutObject(ctx, d.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	return nil
}

func (d *DocumentStore) backupIfExists(ctx context.Context, key, backupKey string) error {
	_, err := d.client.StatObject(ctx, d.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", key, err)
	}

	_, err = d.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: d.bucket, Object: backupKey},
		minio.CopySrcOptions{Bucket: d.bucket, Object: key})
	if err != nil {
		return fmt.Errorf("failed to back up %s: %w", key, err)
	}

	return nil
}
