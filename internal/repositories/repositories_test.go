package repositories

import (
	"context"
	"testing"
	"time"

	"valuedrive/internal/models"
	"valuedrive/internal/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func seedListings() []models.Listing {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []models.Listing{
		{Company: "Honda", Model: "City", Variant: "ZX", CarNumber: "MH12", BodyType: "sedan", FuelType: "petrol", Price: 9.5, Condition: models.ConditionNew, RegistrationStatus: models.StatusRegistered, Images: []string{"a.jpg"}, CreatedAt: base},
		{Company: "Maruti Suzuki", Model: "Swift", Variant: "VXI", CarNumber: "DL04", BodyType: "hatchback", FuelType: "petrol", Price: 5.2, Condition: models.ConditionPreowned, RegistrationStatus: models.StatusRegistered, Images: []string{"b.jpg"}, CreatedAt: base.Add(time.Hour)},
		{Company: "Tata", Model: "Nexon", Variant: "50%_off", CarNumber: "KA01", BodyType: "suv", FuelType: "electric", Price: 17, Condition: models.ConditionPreowned, RegistrationStatus: models.StatusUnregistered, Images: []string{"c.jpg", "d.jpg"}, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func newSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Listing{}, &models.User{}))
	return db
}

func listingStores(t *testing.T) map[string]ListingRepository {
	return map[string]ListingRepository{
		"memory": NewMockListingRepository(),
		"gorm":   NewGORMListingRepository(newSQLite(t)),
	}
}

func models2companies(ls []models.Listing) []string {
	out := []string{}
	for _, l := range ls {
		out = append(out, l.Company)
	}
	return out
}

func TestListingRepositories_List(t *testing.T) {
	ctx := context.Background()
	for name, repo := range listingStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, l := range seedListings() {
				require.NoError(t, repo.Create(ctx, &l))
			}

			tests := []struct {
				params query.Params
				want   []string
			}{
				{query.Params{}, []string{"Tata", "Maruti Suzuki", "Honda"}},
				{query.Params{Company: "HONDA"}, []string{"Honda"}},
				{query.Params{SearchKey: "mh12"}, []string{"Honda"}},
				{query.Params{Condition: "preowned", FuelType: "petrol"}, []string{"Maruti Suzuki"}},
				{query.Params{MinPrice: "5.2", MaxPrice: "9.5"}, []string{"Maruti Suzuki", "Honda"}},
				{query.Params{SearchKey: "50%_"}, []string{"Tata"}},
				{query.Params{SearchKey: "%"}, []string{"Tata"}},
				{query.Params{Company: "h_nda"}, []string{}},
				{query.Params{Limit: 2}, []string{"Tata", "Maruti Suzuki"}},
			}
			for _, tt := range tests {
				pred, err := query.Build(tt.params)
				require.NoError(t, err)
				got, err := repo.List(ctx, pred)
				require.NoError(t, err)
				assert.Equal(t, tt.want, models2companies(got), "%+v", tt.params)
			}
		})
	}
}

func TestListingRepositories_CRUD(t *testing.T) {
	ctx := context.Background()
	for name, repo := range listingStores(t) {
		t.Run(name, func(t *testing.T) {
			l := seedListings()[2]
			require.NoError(t, repo.Create(ctx, &l))
			require.NotEmpty(t, l.ID)

			got, err := repo.GetByID(ctx, l.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"c.jpg", "d.jpg"}, got.Images)

			got.Price = 15
			got.Images = []string{"d.jpg"}
			require.NoError(t, repo.Update(ctx, got))
			got, err = repo.GetByID(ctx, l.ID)
			require.NoError(t, err)
			assert.Equal(t, 15.0, got.Price)
			assert.Equal(t, []string{"d.jpg"}, got.Images)

			exists, err := repo.ExistsByCarNumber(ctx, "KA01", "")
			require.NoError(t, err)
			assert.True(t, exists)
			exists, err = repo.ExistsByCarNumber(ctx, "KA01", l.ID)
			require.NoError(t, err)
			assert.False(t, exists)

			require.NoError(t, repo.Delete(ctx, l.ID))
			_, err = repo.GetByID(ctx, l.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, repo.Delete(ctx, l.ID), ErrNotFound)
			assert.ErrorIs(t, repo.Update(ctx, got), ErrNotFound)
		})
	}
}

func TestUserRepositories(t *testing.T) {
	ctx := context.Background()
	stores := map[string]UserRepository{
		"memory": NewMockUserRepository(),
		"gorm":   NewGORMUserRepository(newSQLite(t)),
	}
	for name, repo := range stores {
		t.Run(name, func(t *testing.T) {
			u := &models.User{Name: "Asha", Email: "asha@example.com", Password: "hash"}
			require.NoError(t, repo.Create(ctx, u))
			assert.ErrorIs(t, repo.Create(ctx, &models.User{Name: "B", Email: "asha@example.com", Password: "x"}), ErrDuplicate)

			got, err := repo.GetByEmail(ctx, "asha@example.com")
			require.NoError(t, err)
			assert.Equal(t, u.ID, got.ID)

			_, err = repo.GetByResetToken(ctx, "")
			assert.ErrorIs(t, err, ErrNotFound)

			exp := time.Now().Add(time.Hour)
			got.ResetPasswordToken = "tok"
			got.ResetPasswordExpires = &exp
			require.NoError(t, repo.Update(ctx, got))

			byToken, err := repo.GetByResetToken(ctx, "tok")
			require.NoError(t, err)
			assert.Equal(t, u.ID, byToken.ID)

			_, err = repo.GetByEmail(ctx, "nobody@example.com")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBSONFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, bsonFilter(query.Predicate{}))

	pred, err := query.Build(query.Params{SearchKey: "a.b", Condition: "new", MinPrice: "1", MaxPrice: "2"})
	require.NoError(t, err)

	rx := primitive.Regex{Pattern: `a\.b`, Options: "i"}
	assert.Equal(t, bson.M{"$and": bson.A{
		bson.M{"$or": bson.A{
			bson.M{"company": rx},
			bson.M{"model": rx},
			bson.M{"variant": rx},
			bson.M{"car_number": rx},
		}},
		bson.M{"condition": "new"},
		bson.M{"price": bson.M{"$gte": 1.0, "$lte": 2.0}},
	}}, bsonFilter(pred))
}
