package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const credentialsCollection = "credentials"

// CredentialRepository stores credential records. Login uniqueness is backed
// by a unique index created in EnsureIndexes.
type CredentialRepository struct {
	coll *mongo.Collection
}

func NewCredentialRepository(db *mongo.Database) *CredentialRepository {
	return &CredentialRepository{coll: db.Collection(credentialsCollection)}
}

type credentialDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Login        string             `bson:"login"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	FirstName    string             `bson:"first_name,omitempty"`
	LastName     string             `bson:"last_name,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

// EnsureIndexes creates the unique login index. It is safe to call on every start.
func (r *CredentialRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "login", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_login"),
	})
	if err != nil {
		return fmt.Errorf("create login index: %w", err)
	}
	return nil
}

func (r *CredentialRepository) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	var doc credentialDoc
	if err := r.coll.FindOne(ctx, bson.M{"login": login}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return toDomain(doc), nil
}

func (r *CredentialRepository) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"login": login}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count credentials: %w", err)
	}
	return n > 0, nil
}

// Save inserts user when it has no ID yet and replaces the stored document
// otherwise. Collisions on login surface as domain.ErrLoginExists.
func (r *CredentialRepository) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	doc, err := fromDomain(user)
	if err != nil {
		return nil, err
	}

	if doc.ID.IsZero() {
		res, err := r.coll.InsertOne(ctx, doc)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, domain.ErrLoginExists
			}
			return nil, fmt.Errorf("insert credential: %w", err)
		}
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			doc.ID = oid
		}
		return toDomain(doc), nil
	}

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrLoginExists
		}
		return nil, fmt.Errorf("replace credential: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrUserNotFound
	}
	return toDomain(doc), nil
}

func (r *CredentialRepository) Delete(ctx context.Context, user *domain.User) error {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return fmt.Errorf("credential id %q: %w", user.ID, domain.ErrUserNotFound)
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Ping reports whether the backing database is reachable.
func (r *CredentialRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func fromDomain(u *domain.User) (credentialDoc, error) {
	doc := credentialDoc{
		Login:        u.Login,
		PasswordHash: u.PasswordHash,
		Role:         u.Role.String(),
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
	if u.ID != "" {
		oid, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			return credentialDoc{}, fmt.Errorf("credential id %q: %w", u.ID, err)
		}
		doc.ID = oid
	}
	return doc, nil
}

func toDomain(doc credentialDoc) *domain.User {
	u := &domain.User{
		Login:        doc.Login,
		PasswordHash: doc.PasswordHash,
		Role:         domain.Role(doc.Role),
		FirstName:    doc.FirstName,
		LastName:     doc.LastName,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}
	if !doc.ID.IsZero() {
		u.ID = doc.ID.Hex()
	}
	return u
}
