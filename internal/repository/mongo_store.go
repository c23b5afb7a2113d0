package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hitoshi/fitlog/internal/model"
)

// photoDoc はprogress_photosコレクションのドキュメント表現。
type photoDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	ObjectKey   string    `bson:"object_key"`
	ContentType string    `bson:"content_type"`
	Size        int64     `bson:"size_bytes"`
	Description string    `bson:"description"`
	UploadedAt  time.Time `bson:"uploaded_at"`
}

func (d photoDoc) toModel() *model.ProgressPhoto {
	return &model.ProgressPhoto{
		ID:          d.ID,
		UserID:      d.UserID,
		ObjectKey:   d.ObjectKey,
		ContentType: d.ContentType,
		Size:        d.Size,
		Description: d.Description,
		UploadedAt:  d.UploadedAt,
	}
}

// MongoPhotoRepo はMongoDBを使用した経過写真メタデータリポジトリ。
type MongoPhotoRepo struct {
	col *mongo.Collection
}

// NewMongoPhotoRepo はMongoPhotoRepoを生成する。
func NewMongoPhotoRepo(db *mongo.Database) *MongoPhotoRepo {
	return &MongoPhotoRepo{col: db.Collection("progress_photos")}
}

// Create は写真メタデータを作成する。
func (r *MongoPhotoRepo) Create(ctx context.Context, p *model.ProgressPhoto) error {
	_, err := r.col.InsertOne(ctx, photoDoc{
		ID:          p.ID,
		UserID:      p.UserID,
		ObjectKey:   p.ObjectKey,
		ContentType: p.ContentType,
		Size:        p.Size,
		Description: p.Description,
		UploadedAt:  p.UploadedAt,
	})
	if err != nil {
		return fmt.Errorf("mongo insert progress photo: %w", err)
	}
	return nil
}

// ListByUser はユーザーの写真一覧をuploaded_at降順で返す。
func (r *MongoPhotoRepo) ListByUser(ctx context.Context, userID string) ([]*model.ProgressPhoto, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find progress photos: %w", err)
	}
	defer cur.Close(ctx)

	var docs []photoDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode progress photos: %w", err)
	}
	photos := make([]*model.ProgressPhoto, 0, len(docs))
	for _, d := range docs {
		photos = append(photos, d.toModel())
	}
	return photos, nil
}

// FindByUserAndID はユーザーが所有する写真を取得する。見つからない場合はnilを返す。
func (r *MongoPhotoRepo) FindByUserAndID(ctx context.Context, userID, id string) (*model.ProgressPhoto, error) {
	var doc photoDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find progress photo: %w", err)
	}
	return doc.toModel(), nil
}

// mongoPinger はmongo.ClientをPingerに適合させる。
type mongoPinger struct {
	client *mongo.Client
}

func (p mongoPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}

// NewMongoStore はMongoDBバックエンドのリポジトリ一式を生成する。
func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Users:    NewMongoUserRepo(db),
		Meals:    NewMongoMealRepo(db),
		Workouts: NewMongoWorkoutRepo(db),
		Weights:  NewMongoWeightRepo(db),
		Photos:   NewMongoPhotoRepo(db),
		Pinger:   mongoPinger{client: db.Client()},
	}
}

// EnsureMongoIndexes は必要なインデックスを作成する。冪等。
// users.emailの一意インデックスがメールアドレス重複登録を防ぐ。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_key"),
	}); err != nil {
		return fmt.Errorf("mongo create users.email index: %w", err)
	}

	byUserLoggedAt := mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "logged_at", Value: -1}},
	}
	for _, name := range []string{"meals", "workouts", "weight_logs"} {
		if _, err := db.Collection(name).Indexes().CreateOne(ctx, byUserLoggedAt); err != nil {
			return fmt.Errorf("mongo create %s index: %w", name, err)
		}
	}

	if _, err := db.Collection("progress_photos").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "uploaded_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("mongo create progress_photos index: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PhotoRepository = (*MongoPhotoRepo)(nil)
