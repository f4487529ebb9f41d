// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// Tests using it must carry the integration build tag. The database URL is
// read from PATHWISE_TEST_DATABASE_URL, falling back to DATABASE_URL; when
// neither is set the test is skipped.
//
// Each test should run its work through WithTx so that every change is
// rolled back and tests stay isolated:
//
//	db := testdb.GetTestDBWithT(t)
//	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//		stores := postgres.NewStores(tx, nil)
//		// ...
//	})
package testdb
