package accountRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aiacard/models"
	"aiacard/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const opTimeout = 5 * time.Second

// MongoAccountRepo implements AccountRepository using MongoDB.
type MongoAccountRepo struct {
	coll *mongo.Collection
}

// NewMongoAccountRepo binds the repository to dbName.collName and makes sure
// the indexes exist.
func NewMongoAccountRepo(ctx context.Context, client *mongo.Client, dbName, collName string) AccountRepository {
	coll := client.Database(dbName).Collection(collName)
	repo := &MongoAccountRepo{coll: coll}

	if err := repo.ensureIndexes(ctx); err != nil {
		utils.GetLogger().Error("account repo: index creation failed", zap.Error(err))
	}
	return repo
}

// idFilter matches an account by its id, or by _id for documents that predate
// the id field.
func idFilter(id string, extra bson.M) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		byID := bson.M{"$or": bson.A{bson.M{"id": id}, bson.M{"_id": oid}}}
		if len(extra) == 0 {
			return byID
		}
		return bson.M{"$and": bson.A{byID, extra}}
	}
	filter := bson.M{"id": id}
	for k, v := range extra {
		filter[k] = v
	}
	return filter
}

func fillLegacyID(acc *models.Account) {
	if acc.ID == "" && !acc.MongoID.IsZero() {
		acc.ID = acc.MongoID.Hex()
	}
}

func (r *MongoAccountRepo) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	var acc models.Account
	if err := r.coll.FindOne(ctx, filter).Decode(&acc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	fillLegacyID(&acc)
	return &acc, nil
}

// Create inserts a new account document.
func (r *MongoAccountRepo) Create(ctx context.Context, acc *models.Account) error {
	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now()
	acc.CreatedAt = now
	acc.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, acc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *MongoAccountRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.findOne(ctx, idFilter(id, nil))
}

func (r *MongoAccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoAccountRepo) GetByPhone(ctx context.Context, areaCode, mobile string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"areaCode": areaCode, "mobile": mobile})
}

// UpdateProfile sets the provided profile attributes and returns the new document.
func (r *MongoAccountRepo) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.Account, error) {
	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	set := bson.M{"updatedAt": time.Now()}
	for k, v := range update.Fields() {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var acc models.Account
	err := r.coll.FindOneAndUpdate(ctx, idFilter(id, nil), bson.M{"$set": set}, opts).Decode(&acc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update profile for %s: %w", id, err)
	}
	fillLegacyID(&acc)
	return &acc, nil
}

// StageChallenge overwrites the purpose's pending fields in one update.
func (r *MongoAccountRepo) StageChallenge(ctx context.Context, id string, ch models.Challenge) error {
	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	f := ch.Purpose.Fields()
	set := bson.M{
		f.Code:      ch.Code,
		f.Expiry:    ch.Expiry,
		"updatedAt": time.Now(),
	}
	for _, name := range f.Staged {
		set[name] = ch.Staged[name]
	}

	res, err := r.coll.UpdateOne(ctx, idFilter(id, nil), bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to stage %s challenge for %s: %w", ch.Purpose, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CommitChallenge matches on the stored code and staged values so a commit
// racing a newer request loses, and relies on the unique indexes to reject a
// target value another account took in the meantime.
func (r *MongoAccountRepo) CommitChallenge(ctx context.Context, acc *models.Account, purpose models.OTPPurpose) error {
	code, _, ok := acc.ActiveChallenge(purpose)
	if !ok {
		return ErrChallengeMismatch
	}

	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	f := purpose.Fields()
	match := bson.M{f.Code: code}
	for k, v := range acc.StagedValues(purpose) {
		match[k] = v
	}
	filter := idFilter(acc.ID, match)

	now := time.Now()
	set := bson.M{"updatedAt": now}
	for k, v := range acc.CommitValues(purpose) {
		set[k] = v
	}
	unset := bson.M{f.Code: "", f.Expiry: ""}
	for _, name := range f.Staged {
		unset[name] = ""
	}

	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set, "$unset": unset})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to commit %s for %s: %w", purpose, acc.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrChallengeMismatch
	}

	acc.ApplyCommit(purpose)
	acc.UpdatedAt = now
	return nil
}

func (r *MongoAccountRepo) updateByID(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, idFilter(id, nil), update)
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCardholderCreated records the partner's holder id. It never overwrites
// an existing one.
func (r *MongoAccountRepo) MarkCardholderCreated(ctx context.Context, id, holderID string) error {
	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	filter := idFilter(id, bson.M{
		"$or": bson.A{
			bson.M{"holderId": bson.M{"$exists": false}},
			bson.M{"holderId": ""},
		},
	})
	update := bson.M{"$set": bson.M{
		"holderId":   holderID,
		"cardStatus": models.CardStatusCardholderCreated,
		"updatedAt":  time.Now(),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to store holder id for %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimPayment adds ref to the account's spent payments. The filter refuses a
// second claim on the same account; the unique index refuses one on another.
func (r *MongoAccountRepo) ClaimPayment(ctx context.Context, id, ref string) error {
	ctx, cancel := withTimeout(ctx, opTimeout)
	defer cancel()

	filter := idFilter(id, bson.M{"usedPayments": bson.M{"$ne": ref}})
	update := bson.M{
		"$addToSet": bson.M{"usedPayments": ref},
		"$set":      bson.M{"updatedAt": time.Now()},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrPaymentClaimed
		}
		return fmt.Errorf("failed to claim payment for %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrPaymentClaimed
	}
	return nil
}

func (r *MongoAccountRepo) ReleasePayment(ctx context.Context, id, ref string) error {
	return r.updateByID(ctx, id, bson.M{
		"$pull": bson.M{"usedPayments": ref},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
}

// StartCardOpen records the merchant order number about to be submitted.
func (r *MongoAccountRepo) StartCardOpen(ctx context.Context, id, orderNo string) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"cardOrderNo": orderNo, "updatedAt": time.Now()},
		"$inc": bson.M{"cardOpenAttempts": 1},
	})
}

func (r *MongoAccountRepo) SetCardStatus(ctx context.Context, id, status string) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"cardStatus": status, "updatedAt": time.Now()}})
}

// ListPendingCards returns accounts whose card open has not completed, oldest first.
func (r *MongoAccountRepo) ListPendingCards(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Account, error) {
	ctx, cancel := withTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"cardStatus": bson.M{"$in": bson.A{models.CardStatusCardholderCreated, models.CardStatusCardOpenFailed}},
		"updatedAt":  bson.M{"$lt": updatedBefore},
	}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}}).SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending cards: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []models.Account
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode pending cards: %w", err)
	}
	for i := range accounts {
		fillLegacyID(&accounts[i])
	}
	return accounts, nil
}
