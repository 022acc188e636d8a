package relation

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	glancev1alpha1 "github.com/mrrauch/glance-operator/api/v1alpha1"
	"github.com/mrrauch/glance-operator/internal/common"
	"github.com/mrrauch/glance-operator/internal/storage"
)

const (
	databaseName = "glance"
	databaseUser = "glance"
)

// Database provisions the glance database and reports its connection once
// the db-create Job has completed.
type Database struct {
	Client client.Client
}

var _ Handler = (*Database)(nil)

func (d *Database) Name() string { return DatabaseRelation }

func (d *Database) Observe(ctx context.Context, instance *glancev1alpha1.Glance) (storage.RelationState, error) {
	logger := log.FromContext(ctx).WithValues("relation", DatabaseRelation)

	secretName := DatabaseSecretName(instance)
	if err := common.EnsureSecret(ctx, d.Client, secretName, instance.Namespace, map[string]int{"password": 32}, instance); err != nil {
		return pending(DatabaseRelation), fmt.Errorf("ensure database password: %w", err)
	}

	engine := string(DatabaseEngine(instance.Spec.Database.Engine))
	host, rootSecret := databaseDependency(instance.Name, instance.Namespace)
	if err := common.EnsureDatabase(ctx, d.Client, common.DatabaseParams{
		Name:           instance.Name,
		Namespace:      instance.Namespace,
		Engine:         engine,
		DatabaseName:   databaseName,
		Username:       databaseUser,
		SecretName:     secretName,
		DatabaseSecret: rootSecret,
		DatabaseHost:   host,
	}, instance); err != nil {
		return pending(DatabaseRelation), fmt.Errorf("ensure database: %w", err)
	}

	done, err := jobDone(ctx, d.Client, common.DatabaseJobName(instance.Name), instance.Namespace)
	if err != nil || !done {
		logger.V(1).Info("Waiting for database creation")
		return pending(DatabaseRelation), err
	}

	creds, err := common.ReadSecretData(ctx, d.Client, secretName, instance.Namespace)
	if err != nil {
		return pending(DatabaseRelation), err
	}
	password := creds["password"]
	if password == "" {
		return pending(DatabaseRelation), nil
	}

	return ready(DatabaseRelation, map[string]string{
		"host":       host,
		"database":   databaseName,
		"username":   databaseUser,
		"password":   password,
		"connection": common.ConnectionURL(engine, databaseUser, password, host, databaseName),
	}), nil
}

// DatabaseSecretName is the Secret holding the glance database password.
func DatabaseSecretName(instance *glancev1alpha1.Glance) string {
	if instance.Spec.Database.SecretName != "" {
		return instance.Spec.Database.SecretName
	}
	return fmt.Sprintf("%s-db-password", instance.Name)
}

// DatabaseEngine returns the configured engine, defaulting to MySQL.
func DatabaseEngine(engine glancev1alpha1.DatabaseEngine) glancev1alpha1.DatabaseEngine {
	switch engine {
	case glancev1alpha1.DatabaseEngineMySQL, glancev1alpha1.DatabaseEngineMariaDB, glancev1alpha1.DatabaseEnginePostgreSQL:
		return engine
	default:
		return glancev1alpha1.DatabaseEngineMySQL
	}
}
