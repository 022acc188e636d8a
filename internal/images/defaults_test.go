package images

import "testing"

func TestDatabaseClient(t *testing.T) {
	cases := map[string]string{
		"":           DefaultMySQLClient,
		"mysql":      DefaultMySQLClient,
		"mariadb":    DefaultMariaDBClient,
		"postgresql": DefaultPostgreSQLClient,
	}
	for engine, want := range cases {
		if got := DatabaseClient(engine); got != want {
			t.Errorf("engine %q: expected %s, got %s", engine, want, got)
		}
	}
}
