package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/internal/database"
	bienrepo "github.com/Ramsey-B/sorrel/internal/repositories/bien"
	localisationrepo "github.com/Ramsey-B/sorrel/internal/repositories/localisation"
	lotrepo "github.com/Ramsey-B/sorrel/internal/repositories/lot"
	mutationrepo "github.com/Ramsey-B/sorrel/internal/repositories/mutation"
	mutationbienrepo "github.com/Ramsey-B/sorrel/internal/repositories/mutationbien"
	"github.com/Ramsey-B/sorrel/pkg/builder"
	"github.com/Ramsey-B/sorrel/pkg/loader"
	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/resolver"
	"github.com/Ramsey-B/sorrel/pkg/runner"
)

// testContext holds the wired pipeline over a real database
type testContext struct {
	ctx    context.Context
	db     database.DB
	folder string

	mutations     *mutationrepo.Repository
	localisations *localisationrepo.Repository
	biens         *bienrepo.Repository
	lots          *lotrepo.Repository
	associations  *mutationbienrepo.Repository
}

func setupTestContext(t *testing.T) *testContext {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	host := os.Getenv("SORREL_TEST_DB_HOST")
	if host == "" {
		t.Skip("Database not configured")
	}

	logger := logging.NewNop()
	ctx := context.Background()

	db, err := database.Connect(ctx, database.Config{
		Host:            host,
		Port:            envOr("SORREL_TEST_DB_PORT", "5432"),
		UserName:        envOr("SORREL_TEST_DB_USER", "postgres"),
		Password:        os.Getenv("SORREL_TEST_DB_PASSWORD"),
		Name:            envOr("SORREL_TEST_DB_NAME", "dvf_test"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	driver, err := migratepg.WithInstance(db.Unsafe().DB, &migratepg.Config{})
	require.NoError(t, err)
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: "../../db/pg",
	})
	require.NoError(t, migrations.Migrate(envOr("SORREL_TEST_DB_NAME", "dvf_test"), driver))

	for _, table := range []string{"mutation_bien", "lot", "mutation", "bien", "localisation"} {
		_, err := db.ExecContext(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}

	return &testContext{
		ctx:           ctx,
		db:            db,
		folder:        t.TempDir(),
		mutations:     mutationrepo.NewRepository(db, logger),
		localisations: localisationrepo.NewRepository(db, logger),
		biens:         bienrepo.NewRepository(db, logger),
		lots:          lotrepo.NewRepository(db, logger),
		associations:  mutationbienrepo.NewRepository(db, logger),
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func (tc *testContext) newRunner(chunkSize int) *runner.Runner {
	logger := logging.NewNop()
	res := resolver.New(tc.localisations, tc.biens, tc.mutations, logger)
	bld := builder.New(tc.lots, tc.associations)
	ld := loader.New(tc.db, tc.localisations, tc.biens, tc.mutations, tc.lots, tc.associations,
		logger, 2, 50*time.Millisecond)
	return runner.New(res, bld, ld, nil, logger, runner.Config{
		InputFolder:      tc.folder,
		ChunkSize:        chunkSize,
		ParseWorkerCount: 2,
	})
}

func (tc *testContext) writeSource(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(tc.folder, name), []byte(content), 0o644))
}

const sourceHeader = "id_mutation,date_mutation,nature_mutation,valeur_fonciere,adresse_nom_voie,code_postal,code_commune,code_departement,nom_commune,longitude,latitude,id_parcelle,surface_reelle_bati,type_local,lot1_numero,lot1_surface_carrez\n"

func (tc *testContext) counts(t *testing.T) (mutations, localisations, biens, lots, pairs int64) {
	t.Helper()
	var err error
	mutations, err = tc.mutations.Count(tc.ctx)
	require.NoError(t, err)
	localisations, err = tc.localisations.Count(tc.ctx)
	require.NoError(t, err)
	biens, err = tc.biens.Count(tc.ctx)
	require.NoError(t, err)
	lots, err = tc.lots.Count(tc.ctx)
	require.NoError(t, err)
	pairs, err = tc.associations.Count(tc.ctx)
	require.NoError(t, err)
	return
}

func TestPipeline_EndToEnd(t *testing.T) {
	tc := setupTestContext(t)
	tc.writeSource(t, "2024.csv", sourceHeader+
		"M1,2024-01-15,Vente,200000,RUE X,33000,33063,33,Bordeaux,-0.58,44.83,P1,80,Appartement,L1,30\n"+
		"M1,2024-01-15,Vente,200000,RUE X,33000,33063,33,Bordeaux,-0.58,44.83,P1,80,Appartement,L2,10\n"+
		"M2,2024-02-01,Vente,150000,RUE Y,33000,33063,33,Bordeaux,-0.59,44.84,P2,60,Maison,,\n")

	summary, err := tc.newRunner(100).Run(tc.ctx)
	require.NoError(t, err)

	mutations, localisations, biens, lots, pairs := tc.counts(t)
	assert.EqualValues(t, 2, mutations)
	assert.EqualValues(t, 2, localisations)
	assert.EqualValues(t, 2, biens)
	assert.EqualValues(t, 2, lots)
	assert.EqualValues(t, 2, pairs)

	require.Len(t, summary.Sources, 1)
	assert.Equal(t, 3, summary.Sources[0].RowsRead)
	assert.Equal(t, 1, summary.Sources[0].DuplicateLinks)

	var value float64
	require.NoError(t, tc.db.GetContext(tc.ctx, &value,
		"SELECT valeur_fonciere FROM mutation_bien WHERE mutation_id = $1", "M1"))
	assert.Equal(t, 200000.0, value, "value attached once, not summed per lot row")
}

func TestPipeline_RerunIsIdempotent(t *testing.T) {
	tc := setupTestContext(t)
	tc.writeSource(t, "2024.csv", sourceHeader+
		"M1,2024-01-15,Vente,200000,RUE X,33000,33063,33,Bordeaux,-0.58,44.83,P1,80,Appartement,L1,30\n")

	_, err := tc.newRunner(100).Run(tc.ctx)
	require.NoError(t, err)
	m1, l1, b1, lo1, p1 := tc.counts(t)

	// A fresh runner simulates a restarted process.
	summary, err := tc.newRunner(100).Run(tc.ctx)
	require.NoError(t, err)
	m2, l2, b2, lo2, p2 := tc.counts(t)

	assert.Equal(t, m1, m2)
	assert.Equal(t, l1, l2)
	assert.Equal(t, b1, b2)
	assert.Equal(t, lo1, lo2)
	assert.Equal(t, p1, p2)
	assert.Zero(t, summary.Localisations)
	assert.Zero(t, summary.Biens)
}

func TestPipeline_BatchSizeOne(t *testing.T) {
	tc := setupTestContext(t)
	tc.writeSource(t, "2024.csv", sourceHeader+
		"M1,2024-01-15,Vente,200000,RUE X,33000,33063,33,Bordeaux,-0.58,44.83,P1,80,Appartement,L1,30\n"+
		"M1,2024-01-15,Vente,200000,RUE X,33000,33063,33,Bordeaux,-0.58,44.83,P1,80,Appartement,L2,10\n")

	_, err := tc.newRunner(1).Run(tc.ctx)
	require.NoError(t, err)

	mutations, localisations, biens, lots, pairs := tc.counts(t)
	assert.EqualValues(t, 1, mutations)
	assert.EqualValues(t, 1, localisations)
	assert.EqualValues(t, 1, biens)
	assert.EqualValues(t, 2, lots)
	assert.EqualValues(t, 1, pairs)

	// Referential integrity holds at any batch size.
	var orphans int64
	require.NoError(t, tc.db.GetContext(tc.ctx, &orphans,
		"SELECT COUNT(*) FROM lot l LEFT JOIN bien b ON b.id = l.bien_id WHERE b.id IS NULL"))
	assert.Zero(t, orphans)
}

func TestPipeline_MalformedRowsDoNotBlockBatch(t *testing.T) {
	tc := setupTestContext(t)
	tc.writeSource(t, "2024.csv", sourceHeader+
		"M1,bad-date,Vente,200000,RUE X,33000,33063,33,Bordeaux,-0.58,44.83,P1,80,Appartement,L1,30\n"+
		"M2,2024-02-01,Vente,150000,RUE Y,33000,33063,33,Bordeaux,-0.59,44.84,P2,60,Maison,,\n")

	summary, err := tc.newRunner(100).Run(tc.ctx)
	require.NoError(t, err)

	mutations, _, _, _, _ := tc.counts(t)
	assert.EqualValues(t, 1, mutations)
	require.Len(t, summary.Sources, 1)
	assert.Equal(t, 1, summary.Sources[0].MalformedRows)
	assert.Equal(t, 1, summary.Sources[0].RowsLoaded)
}
