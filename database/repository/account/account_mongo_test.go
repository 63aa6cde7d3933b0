package accountRepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"aiacard/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const legacyHex = "64b7f0c2a1e4b5d6c7f8a9b0"

func updated(n int32) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"})
}

// sentUpdate returns the single update statement the repo sent.
func sentUpdate(mt *mtest.T) bson.Raw {
	mt.Helper()
	evt := mt.GetStartedEvent()
	if evt == nil || evt.CommandName != "update" {
		mt.Fatalf("expected an update command, got %+v", evt)
	}
	stmt, err := evt.Command.LookupErr("updates", "0")
	if err != nil {
		mt.Fatalf("no update statement: %v", err)
	}
	return stmt.Document()
}

func str(mt *mtest.T, doc bson.Raw, path ...string) string {
	mt.Helper()
	v, err := doc.LookupErr(path...)
	if err != nil {
		mt.Fatalf("missing %v in %s", path, doc)
	}
	s, ok := v.StringValueOK()
	if !ok {
		mt.Fatalf("%v is %s, not a string", path, v.Type)
	}
	return s
}

func emailChangeAccount() *models.Account {
	expiry := time.Now().Add(time.Minute)
	return &models.Account{
		ID:                "acc-1",
		EmailChangeOTP:    "1234",
		EmailChangeExpiry: &expiry,
		TempNewEmail:      "new@x.com",
	}
}

func TestMongoCommitChallenge(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("filter pins code and staged value", func(mt *mtest.T) {
		repo := &MongoAccountRepo{coll: mt.Coll}
		mt.AddMockResponses(updated(1))

		acc := emailChangeAccount()
		if err := repo.CommitChallenge(context.Background(), acc, models.PurposeEmailChange); err != nil {
			mt.Fatalf("commit: %v", err)
		}
		stmt := sentUpdate(mt)

		want := map[string][]string{
			"acc-1":     {"q", "id"},
			"1234":      {"q", "emailChangeOtp"},
			"new@x.com": {"q", "tempNewEmail"},
		}
		for value, path := range want {
			if got := str(mt, stmt, path...); got != value {
				mt.Errorf("%v = %q, want %q", path, got, value)
			}
		}
		if got := str(mt, stmt, "u", "$set", "email"); got != "new@x.com" {
			mt.Errorf("$set.email = %q", got)
		}
		for _, field := range []string{"emailChangeOtp", "emailChangeExpiry", "tempNewEmail"} {
			if _, err := stmt.LookupErr("u", "$unset", field); err != nil {
				mt.Errorf("%s not unset", field)
			}
		}
		if acc.Email != "new@x.com" || acc.EmailChangeOTP != "" {
			mt.Errorf("commit not applied in memory: %+v", acc)
		}
	})

	cases := []struct {
		name string
		resp bson.D
		want error
	}{
		{"newer challenge won", updated(0), ErrChallengeMismatch},
		{"target taken", duplicateKey(), ErrDuplicateKey},
	}
	for _, tc := range cases {
		mt.Run(tc.name, func(mt *mtest.T) {
			repo := &MongoAccountRepo{coll: mt.Coll}
			mt.AddMockResponses(tc.resp)

			acc := emailChangeAccount()
			err := repo.CommitChallenge(context.Background(), acc, models.PurposeEmailChange)
			if !errors.Is(err, tc.want) {
				mt.Fatalf("expected %v, got %v", tc.want, err)
			}
			if acc.EmailChangeOTP != "1234" {
				mt.Fatal("a failed commit must leave the account untouched")
			}
		})
	}
}

func TestMongoMarkCardholderCreated(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("only without a holder", func(mt *mtest.T) {
		repo := &MongoAccountRepo{coll: mt.Coll}
		mt.AddMockResponses(updated(1))

		if err := repo.MarkCardholderCreated(context.Background(), "acc-1", "holder-1"); err != nil {
			mt.Fatalf("mark: %v", err)
		}
		stmt := sentUpdate(mt)

		if got := str(mt, stmt, "q", "id"); got != "acc-1" {
			mt.Errorf("q.id = %q", got)
		}
		exists, err := stmt.LookupErr("q", "$or", "0", "holderId", "$exists")
		if b, ok := exists.BooleanOK(); err != nil || !ok || b {
			mt.Errorf("first $or branch must require a missing holderId, got %s", exists)
		}
		if got := str(mt, stmt, "q", "$or", "1", "holderId"); got != "" {
			mt.Errorf("second $or branch must match an empty holderId, got %q", got)
		}
		if got := str(mt, stmt, "u", "$set", "holderId"); got != "holder-1" {
			mt.Errorf("$set.holderId = %q", got)
		}
	})

	mt.Run("holder already recorded", func(mt *mtest.T) {
		repo := &MongoAccountRepo{coll: mt.Coll}
		mt.AddMockResponses(updated(0))

		if err := repo.MarkCardholderCreated(context.Background(), "acc-1", "holder-2"); !errors.Is(err, ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("legacy document keyed by _id", func(mt *mtest.T) {
		repo := &MongoAccountRepo{coll: mt.Coll}
		mt.AddMockResponses(updated(1))

		if err := repo.MarkCardholderCreated(context.Background(), legacyHex, "holder-1"); err != nil {
			mt.Fatalf("mark: %v", err)
		}
		stmt := sentUpdate(mt)

		oid, _ := primitive.ObjectIDFromHex(legacyHex)
		got, err := stmt.LookupErr("q", "$and", "0", "$or", "1", "_id")
		if v, ok := got.ObjectIDOK(); err != nil || !ok || v != oid {
			mt.Errorf("expected _id fallback, got %s", stmt)
		}
		if _, err := stmt.LookupErr("q", "$and", "1", "$or"); err != nil {
			mt.Errorf("holder condition lost: %s", stmt)
		}
	})
}

func TestMongoGetByIDFillsLegacyID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decode", func(mt *mtest.T) {
		repo := &MongoAccountRepo{coll: mt.Coll}
		oid, _ := primitive.ObjectIDFromHex(legacyHex)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "email", Value: "old@x.com"},
		}))

		acc, err := repo.GetByID(context.Background(), legacyHex)
		if err != nil || acc == nil {
			mt.Fatalf("get: %v %v", acc, err)
		}
		if acc.ID != legacyHex || acc.Email != "old@x.com" {
			mt.Fatalf("unexpected account %+v", acc)
		}
	})
}

func TestMongoClaimPayment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	cases := []struct {
		name string
		resp bson.D
		want error
	}{
		{"first claim", updated(1), nil},
		{"already on this account", updated(0), ErrPaymentClaimed},
		{"held by another account", duplicateKey(), ErrPaymentClaimed},
	}
	for _, tc := range cases {
		mt.Run(tc.name, func(mt *mtest.T) {
			repo := &MongoAccountRepo{coll: mt.Coll}
			mt.AddMockResponses(tc.resp)

			if err := repo.ClaimPayment(context.Background(), "acc-1", "stripe:pi_1"); !errors.Is(err, tc.want) {
				mt.Fatalf("expected %v, got %v", tc.want, err)
			}
			stmt := sentUpdate(mt)
			if got := str(mt, stmt, "q", "usedPayments", "$ne"); got != "stripe:pi_1" {
				mt.Errorf("q.usedPayments.$ne = %q", got)
			}
			if got := str(mt, stmt, "u", "$addToSet", "usedPayments"); got != "stripe:pi_1" {
				mt.Errorf("$addToSet.usedPayments = %q", got)
			}
		})
	}
}

func TestMongoEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("partial unique indexes", func(mt *mtest.T) {
		repo := &MongoAccountRepo{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		if err := repo.ensureIndexes(context.Background()); err != nil {
			mt.Fatalf("ensure: %v", err)
		}
		evt := mt.GetStartedEvent()
		if evt == nil || evt.CommandName != "createIndexes" {
			mt.Fatalf("expected createIndexes, got %+v", evt)
		}
		values, err := evt.Command.Lookup("indexes").Array().Values()
		if err != nil {
			mt.Fatalf("indexes: %v", err)
		}
		byName := map[string]bson.Raw{}
		for _, v := range values {
			doc := v.Document()
			byName[doc.Lookup("name").StringValue()] = doc
		}

		cases := []struct {
			index   string
			unique  bool
			partial []string
		}{
			{"id_1", true, []string{"id", "$type"}},
			{"email_1", true, nil},
			{"areaCode_1_mobile_1", true, []string{"mobile", "$type"}},
			{"usedPayments_1", true, []string{"usedPayments", "$type"}},
			{"cardStatus_1_updatedAt_1", false, nil},
		}
		for _, tc := range cases {
			doc, ok := byName[tc.index]
			if !ok {
				mt.Errorf("index %s not requested", tc.index)
				continue
			}
			if unique, _ := doc.Lookup("unique").BooleanOK(); unique != tc.unique {
				mt.Errorf("%s unique = %v", tc.index, unique)
			}
			_, err := doc.LookupErr("partialFilterExpression")
			if tc.partial == nil {
				if err == nil {
					mt.Errorf("%s must not be partial", tc.index)
				}
				continue
			}
			path := append([]string{"partialFilterExpression"}, tc.partial...)
			if got := str(mt, doc, path...); got != "string" {
				mt.Errorf("%s partial filter = %q", tc.index, got)
			}
		}
	})
}
