package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"example.com/budpal/backend/internal/docstore"
	"example.com/budpal/backend/internal/models"
)

const (
	usersCollection         = "users"
	refreshTokensCollection = "refresh_tokens"
)

func translate(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return docstore.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return docstore.ErrConflict
	default:
		return err
	}
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	EmailLower   string    `bson:"emailLower"`
	PasswordHash string    `bson:"passwordHash"`
	Name         *string   `bson:"name,omitempty"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d userDoc) toModel() (models.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("parse user id: %w", err)
	}
	return models.User{
		ID:           id,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Name:         d.Name,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

type Users struct {
	coll *mongo.Collection
}

// NewUsers создает репозиторий пользователей в MongoDB.
func NewUsers(db *mongo.Database) *Users {
	return &Users{coll: db.Collection(usersCollection)}
}

// Create создает пользователя; занятый email дает ErrConflict.
func (s *Users) Create(ctx context.Context, email, passwordHash string, name *string) (models.User, error) {
	now := time.Now().UTC()
	record := userDoc{
		ID:           uuid.NewString(),
		Email:        email,
		EmailLower:   strings.ToLower(email),
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.coll.InsertOne(ctx, record); err != nil {
		return models.User{}, translate(err)
	}
	return record.toModel()
}

// GetByEmail возвращает пользователя по email без учета регистра.
func (s *Users) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findOne(ctx, bson.M{"emailLower": strings.ToLower(email)})
}

// GetByID возвращает пользователя по идентификатору.
func (s *Users) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id.String()})
}

func (s *Users) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var record userDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&record); err != nil {
		return models.User{}, translate(err)
	}
	return record.toModel()
}

type refreshTokenDoc struct {
	ID         string     `bson:"_id"`
	UserID     string     `bson:"userId"`
	TokenHash  string     `bson:"tokenHash"`
	ExpiresAt  time.Time  `bson:"expiresAt"`
	CreatedAt  time.Time  `bson:"createdAt"`
	RevokedAt  *time.Time `bson:"revokedAt,omitempty"`
	ReplacedBy *string    `bson:"replacedBy,omitempty"`
}

type RefreshTokens struct {
	coll *mongo.Collection
}

// NewRefreshTokens создает хранилище refresh-токенов в MongoDB.
func NewRefreshTokens(db *mongo.Database) *RefreshTokens {
	return &RefreshTokens{coll: db.Collection(refreshTokensCollection)}
}

// Create сохраняет refresh-токен.
func (s *RefreshTokens) Create(ctx context.Context, token models.RefreshToken) error {
	record := refreshTokenDoc{
		ID:        token.ID.String(),
		UserID:    token.UserID.String(),
		TokenHash: token.TokenHash,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.coll.InsertOne(ctx, record)
	return translate(err)
}

// GetByID возвращает refresh-токен по идентификатору.
func (s *RefreshTokens) GetByID(ctx context.Context, id uuid.UUID) (models.RefreshToken, error) {
	var record refreshTokenDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&record); err != nil {
		return models.RefreshToken{}, translate(err)
	}

	token := models.RefreshToken{
		ID:        id,
		TokenHash: record.TokenHash,
		ExpiresAt: record.ExpiresAt.UTC(),
		CreatedAt: record.CreatedAt.UTC(),
		RevokedAt: record.RevokedAt,
	}
	userID, err := uuid.Parse(record.UserID)
	if err != nil {
		return models.RefreshToken{}, fmt.Errorf("parse token user id: %w", err)
	}
	token.UserID = userID
	if record.ReplacedBy != nil {
		replacedBy, err := uuid.Parse(*record.ReplacedBy)
		if err == nil {
			token.ReplacedBy = &replacedBy
		}
	}
	return token, nil
}

// Revoke помечает refresh-токен отозванным.
func (s *RefreshTokens) Revoke(ctx context.Context, id uuid.UUID, replacedBy *uuid.UUID) error {
	set := bson.M{"revokedAt": time.Now().UTC()}
	if replacedBy != nil {
		set["replacedBy"] = replacedBy.String()
	}

	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": id.String(), "revokedAt": nil}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

// Rotate отзывает старый токен и затем сохраняет новый, без транзакции.
func (s *RefreshTokens) Rotate(ctx context.Context, oldID uuid.UUID, newToken models.RefreshToken) error {
	if err := s.Revoke(ctx, oldID, &newToken.ID); err != nil {
		return err
	}
	return s.Create(ctx, newToken)
}

// EnsureIndexes создает индексы, от которых зависит уникальность и выборки.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "emailLower", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	for _, info := range models.Categories {
		_, err := db.Collection(info.Collection).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("create %s index: %w", info.Collection, err)
		}
	}
	return nil
}

// NewBackend собирает MongoDB-реализацию хранилищ.
func NewBackend(client *mongo.Client, dbName string) docstore.Backend {
	db := client.Database(dbName)
	return docstore.Backend{
		Name:          "mongo",
		Documents:     NewDocuments(db),
		Users:         NewUsers(db),
		RefreshTokens: NewRefreshTokens(db),
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		Close: client.Disconnect,
	}
}
