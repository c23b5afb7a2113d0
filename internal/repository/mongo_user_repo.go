package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/fitlog/internal/model"
)

// userDoc はusersコレクションのドキュメント表現。
type userDoc struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	Email          string    `bson:"email"`
	PasswordHash   string    `bson:"password_hash"`
	Age            *int      `bson:"age,omitempty"`
	Height         *float64  `bson:"height,omitempty"`
	Weight         *float64  `bson:"weight,omitempty"`
	Gender         string    `bson:"gender,omitempty"`
	FitnessGoal    string    `bson:"fitness_goal,omitempty"`
	DietPreference string    `bson:"diet_preference,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
}

// MongoUserRepo はMongoDBを使用したユーザーリポジトリ。
// emailの一意インデックスはEnsureMongoIndexesで作成する。
type MongoUserRepo struct {
	col *mongo.Collection
}

// NewMongoUserRepo はMongoUserRepoを生成する。
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{col: db.Collection("users")}
}

// Create はユーザーを作成する。一意インデックス違反はErrDuplicateEmailに変換する。
func (r *MongoUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.col.InsertOne(ctx, userDoc{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		PasswordHash:   user.PasswordHash,
		Age:            user.Age,
		Height:         user.Height,
		Weight:         user.Weight,
		Gender:         user.Gender,
		FitnessGoal:    user.FitnessGoal,
		DietPreference: user.DietPreference,
		CreatedAt:      user.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("mongo insert user: %w", err)
	}
	return nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// DeleteByID は指定IDのユーザーを削除する。
func (r *MongoUserRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("mongo delete user: %w", err)
	}
	return nil
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDoc
	err := r.col.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	return &model.User{
		ID:             doc.ID,
		Name:           doc.Name,
		Email:          doc.Email,
		PasswordHash:   doc.PasswordHash,
		Age:            doc.Age,
		Height:         doc.Height,
		Weight:         doc.Weight,
		Gender:         doc.Gender,
		FitnessGoal:    doc.FitnessGoal,
		DietPreference: doc.DietPreference,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

// compile-time interface check
var _ UserRepository = (*MongoUserRepo)(nil)
