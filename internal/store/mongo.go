package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"donationroute/internal/model"
)

// Mongo implements Store over three collections of one database.
type Mongo struct {
	client  *mongo.Client
	Stops   *mongo.Collection
	Metrics *mongo.Collection
	Config  *mongo.Collection
}

// ConnectMongo connects to uri and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	db := client.Database(dbName)
	return &Mongo{
		client:  client,
		Stops:   db.Collection("stops"),
		Metrics: db.Collection("plan_metrics"),
		Config:  db.Collection("optimizer_config"),
	}, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	if m.client == nil {
		return errors.New("mongo client is nil")
	}
	return m.client.Ping(ctx, nil)
}

func (m *Mongo) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

type stopDoc struct {
	Key       string           `bson:"_id"`
	TenantID  string           `bson:"tenant_id"`
	ID        string           `bson:"id"`
	Title     string           `bson:"title,omitempty"`
	Location  *model.GeoPoint  `bson:"location,omitempty"`
	Quantity  float64          `bson:"quantity"`
	Category  string           `bson:"category,omitempty"`
	Status    model.StopStatus `bson:"status"`
	ExpiresAt *time.Time       `bson:"expires_at,omitempty"`
	CreatedAt time.Time        `bson:"created_at"`
}

func stopKey(tenantID, id string) string { return tenantID + ":" + id }

func (d stopDoc) stop() model.Stop {
	return model.Stop{ID: d.ID, Title: d.Title, Location: d.Location, Quantity: d.Quantity, Category: d.Category, Status: d.Status, ExpiresAt: d.ExpiresAt}
}

func (m *Mongo) UpsertStops(ctx context.Context, tenantID string, stops []model.Stop) (int, int, error) {
	if m.Stops == nil {
		return 0, 0, ErrNilCollection
	}
	created, updated := 0, 0
	now := time.Now().UTC()
	for _, s := range stops {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		key := stopKey(tenantID, s.ID)
		set := bson.M{
			"tenant_id":  tenantID,
			"id":         s.ID,
			"title":      s.Title,
			"location":   s.Location,
			"quantity":   s.Quantity,
			"category":   s.Category,
			"status":     s.Status,
			"expires_at": s.ExpiresAt,
		}
		res, err := m.Stops.UpdateOne(ctx,
			bson.M{"_id": key},
			bson.M{"$set": set, "$setOnInsert": bson.M{"created_at": now}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return created, updated, fmt.Errorf("upsert stop %s: %w", s.ID, err)
		}
		if res.UpsertedCount > 0 {
			created++
		} else {
			updated++
		}
	}
	return created, updated, nil
}

func (m *Mongo) ListStops(ctx context.Context, tenantID string, status model.StopStatus) ([]model.Stop, error) {
	if m.Stops == nil {
		return nil, ErrNilCollection
	}
	filter := bson.M{"tenant_id": tenantID}
	if status != "" {
		filter["status"] = status
	}
	cur, err := m.Stops.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()
	var docs []stopDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Stop, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.stop())
	}
	return out, nil
}

type metricsDoc struct {
	TenantID          string `bson:"tenant_id"`
	PlanDate          string `bson:"plan_date"`
	model.PlanMetrics `bson:",inline"`
}

func (m *Mongo) SavePlanMetrics(ctx context.Context, tenantID, planDate string, pm model.PlanMetrics) error {
	if m.Metrics == nil {
		return ErrNilCollection
	}
	if pm.CreatedAt.IsZero() {
		pm.CreatedAt = time.Now().UTC()
	}
	filter := bson.M{"tenant_id": tenantID, "plan_date": planDate, "strategy": pm.Strategy}
	_, err := m.Metrics.ReplaceOne(ctx, filter, metricsDoc{TenantID: tenantID, PlanDate: planDate, PlanMetrics: pm}, options.Replace().SetUpsert(true))
	return err
}

func (m *Mongo) ListPlanMetrics(ctx context.Context, tenantID, planDate, strategy string) ([]model.PlanMetrics, error) {
	if m.Metrics == nil {
		return nil, ErrNilCollection
	}
	filter := bson.M{"tenant_id": tenantID, "plan_date": planDate}
	if strategy != "" {
		filter["strategy"] = strategy
	}
	cur, err := m.Metrics.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "strategy", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()
	var docs []metricsDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.PlanMetrics, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.PlanMetrics)
	}
	return out, nil
}

type configDoc struct {
	TenantID  string         `bson:"_id"`
	Config    map[string]any `bson:"config"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

func (m *Mongo) GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	if m.Config == nil {
		return nil, ErrNilCollection
	}
	var doc configDoc
	err := m.Config.FindOne(ctx, bson.M{"_id": tenantID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.Config, nil
}

func (m *Mongo) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	if m.Config == nil {
		return ErrNilCollection
	}
	doc := configDoc{TenantID: tenantID, Config: cfg, UpdatedAt: time.Now().UTC()}
	_, err := m.Config.ReplaceOne(ctx, bson.M{"_id": tenantID}, doc, options.Replace().SetUpsert(true))
	return err
}
