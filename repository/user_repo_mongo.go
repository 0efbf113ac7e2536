package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"usermanagement/models"
)

const (
	mongoUserCollection    = "app_user"
	mongoCounterCollection = "counters"
)

// MongoUserRepo keeps integer ids so that user URLs look the same as with
// the SQL stores. Ids come from a counter document.
type MongoUserRepo struct {
	DB       *mongo.Client
	Database string
}

// NewMongoUserRepo ensures the unique indexes exist before returning.
func NewMongoUserRepo(ctx context.Context, db *mongo.Client, database string) (*MongoUserRepo, error) {
	r := &MongoUserRepo{DB: db, Database: database}

	_, err := r.users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_1")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_1")},
		{Keys: bson.D{{Key: "is_staff", Value: 1}, {Key: "_id", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return r, nil
}

func (r *MongoUserRepo) users() *mongo.Collection {
	return r.DB.Database(r.Database).Collection(mongoUserCollection)
}

func (r *MongoUserRepo) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.DB.Database(r.Database).Collection(mongoCounterCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": mongoUserCollection},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return counter.Seq, nil
}

func (r *MongoUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = utcNow()
	}
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}
	user.ID = id

	if _, err := r.users().InsertOne(ctx, user); err != nil {
		user.ID = 0
		return mapMongoError(err)
	}
	return nil
}

func (r *MongoUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	user := &models.User{}
	err := r.users().FindOne(ctx, filter).Decode(user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *MongoUserRepo) UsernameExists(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, bson.M{"username": username, "_id": bson.M{"$ne": excludeID}})
}

func (r *MongoUserRepo) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, bson.M{"email": email, "_id": bson.M{"$ne": excludeID}})
}

func (r *MongoUserRepo) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := r.users().CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// nonStaffFilter matches non-staff users whose username starts with prefix,
// ignoring case.
func nonStaffFilter(prefix string) bson.M {
	filter := bson.M{"is_staff": false}
	if prefix != "" {
		filter["username"] = bson.M{"$regex": "^" + regexp.QuoteMeta(prefix), "$options": "i"}
	}
	return filter
}

func (r *MongoUserRepo) ListNonStaff(ctx context.Context, prefix string) ([]models.User, error) {
	cur, err := r.users().Find(ctx, nonStaffFilter(prefix), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

func (r *MongoUserRepo) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := r.users().UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"username":      user.Username,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"is_staff":      user.IsStaff,
	}})
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepo) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.users().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := r.users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login_at": at}})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepo) Ping(ctx context.Context) error {
	return r.DB.Ping(ctx, nil)
}

func mapMongoError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "username_1"):
			return ErrDuplicateUsername
		case strings.Contains(msg, "email_1"):
			return ErrDuplicateEmail
		}
	}
	return fmt.Errorf("db error: %w", err)
}
