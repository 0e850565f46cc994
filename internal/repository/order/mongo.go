package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"curryhouse/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ordersCollection   = "orders"
	countersCollection = "counters"
	orderCounterID     = "orderNumber"
	// sequenceBase keeps Mongo numbering in step with the Postgres sequence start.
	sequenceBase = 1000
)

type lineDocument struct {
	MenuItem string `bson:"menuItem"`
	Name     string `bson:"name"`
	Price    int64  `bson:"price"`
	Quantity int    `bson:"quantity"`
	Subtotal int64  `bson:"subtotal"`
}

type extraDocument struct {
	ID       string `bson:"id"`
	Name     string `bson:"name"`
	Price    int64  `bson:"price"`
	Quantity int    `bson:"quantity"`
	Subtotal int64  `bson:"subtotal"`
}

type orderDocument struct {
	ID                  string                  `bson:"_id"`
	OrderNumber         string                  `bson:"orderNumber"`
	CustomerID          string                  `bson:"customerId"`
	Items               []lineDocument          `bson:"items"`
	Extras              []extraDocument         `bson:"extras"`
	ExtrasTotal         int64                   `bson:"extrasTotal"`
	TotalAmount         int64                   `bson:"totalAmount"`
	DeliveryType        string                  `bson:"deliveryType"`
	DeliveryAddress     *domain.DeliveryAddress `bson:"deliveryAddress,omitempty"`
	PaymentMethod       string                  `bson:"paymentMethod"`
	PaymentStatus       string                  `bson:"paymentStatus"`
	Status              string                  `bson:"status"`
	SpecialInstructions string                  `bson:"specialInstructions"`
	EstimatedMinutes    int                     `bson:"estimatedDeliveryTime"`
	CreatedAt           time.Time               `bson:"createdAt"`
	UpdatedAt           time.Time               `bson:"updatedAt"`
}

// MongoRepository stores orders as documents. Order numbers come from an
// $inc counter document.
type MongoRepository struct {
	orders   *mongo.Collection
	counters *mongo.Collection
	logger   *log.Logger
	now      func() time.Time
}

var _ Repository = (*MongoRepository)(nil)

// NewMongo returns a repository over db. Call EnsureIndexes once at startup.
func NewMongo(db *mongo.Database, logger *log.Logger) *MongoRepository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &MongoRepository{
		orders:   db.Collection(ordersCollection),
		counters: db.Collection(countersCollection),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the unique order number index and the listing index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) NextSequence(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": orderCounterID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		r.logger.Printf("order repo(mongo): next sequence error=%v", err)
		return 0, err
	}
	return sequenceBase + counter.Seq, nil
}

func (r *MongoRepository) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	now := r.now()
	o.ID = uuid.NewString()
	o.CreatedAt = now
	o.UpdatedAt = now

	if _, err := r.orders.InsertOne(ctx, toDocument(o)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("order repo(mongo): insert number=%s error=%v", o.OrderNumber, err)
		return nil, err
	}
	r.logger.Printf("order repo(mongo): created id=%s number=%s customer=%s", o.ID, o.OrderNumber, o.CustomerID)
	created := fromDocument(toDocument(o))
	return &created, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetForCustomer(ctx context.Context, customerID, id string) (*domain.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id, "customerId": customerID})
}

func (r *MongoRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return r.find(ctx, bson.M{"customerId": customerID})
}

func (r *MongoRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id string, to domain.OrderStatus, allowedFrom ...domain.OrderStatus) (*domain.Order, error) {
	filter := bson.M{"_id": id}
	if len(allowedFrom) > 0 {
		from := make([]string, 0, len(allowedFrom))
		for _, s := range allowedFrom {
			from = append(from, string(s))
		}
		filter["status"] = bson.M{"$in": from}
	}

	var doc orderDocument
	err := r.orders.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": bson.M{"status": string(to), "updatedAt": r.now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		r.logger.Printf("order repo(mongo): status id=%s status=%s", id, to)
		o := fromDocument(doc)
		return &o, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		r.logger.Printf("order repo(mongo): update status id=%s error=%v", id, err)
		return nil, err
	}
	if len(allowedFrom) == 0 {
		return nil, domain.ErrNotFound
	}

	n, err := r.orders.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound
	}
	return nil, domain.ErrConflict
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var doc orderDocument
	if err := r.orders.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo(mongo): find error=%v", err)
		return nil, err
	}
	o := fromDocument(doc)
	return &o, nil
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M) ([]domain.Order, error) {
	cur, err := r.orders.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		r.logger.Printf("order repo(mongo): list error=%v", err)
		return nil, err
	}
	var docs []orderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDocument(d))
	}
	return out, nil
}

func toDocument(o domain.Order) orderDocument {
	items := make([]lineDocument, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, lineDocument{MenuItem: l.MenuItemID, Name: l.Name, Price: l.UnitPriceCents, Quantity: l.Quantity, Subtotal: l.SubtotalCents})
	}
	extras := make([]extraDocument, 0, len(o.Extras))
	for _, e := range o.Extras {
		extras = append(extras, extraDocument{ID: e.ID, Name: e.Name, Price: e.UnitPriceCents, Quantity: e.Quantity, Subtotal: e.SubtotalCents})
	}
	return orderDocument{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		CustomerID:          o.CustomerID,
		Items:               items,
		Extras:              extras,
		ExtrasTotal:         o.ExtrasTotalCents,
		TotalAmount:         o.TotalAmountCents,
		DeliveryType:        string(o.DeliveryType),
		DeliveryAddress:     o.DeliveryAddress,
		PaymentMethod:       string(o.PaymentMethod),
		PaymentStatus:       string(o.PaymentStatus),
		Status:              string(o.Status),
		SpecialInstructions: o.SpecialInstructions,
		EstimatedMinutes:    o.EstimatedDeliveryMinutes,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func fromDocument(d orderDocument) domain.Order {
	lines := make([]domain.OrderLine, 0, len(d.Items))
	for _, l := range d.Items {
		lines = append(lines, domain.OrderLine{MenuItemID: l.MenuItem, Name: l.Name, UnitPriceCents: l.Price, Quantity: l.Quantity, SubtotalCents: l.Subtotal})
	}
	extras := make([]domain.OrderExtra, 0, len(d.Extras))
	for _, e := range d.Extras {
		extras = append(extras, domain.OrderExtra{ID: e.ID, Name: e.Name, UnitPriceCents: e.Price, Quantity: e.Quantity, SubtotalCents: e.Subtotal})
	}
	return domain.Order{
		ID:                       d.ID,
		OrderNumber:              d.OrderNumber,
		CustomerID:               d.CustomerID,
		Lines:                    lines,
		Extras:                   extras,
		ExtrasTotalCents:         d.ExtrasTotal,
		TotalAmountCents:         d.TotalAmount,
		DeliveryType:             domain.DeliveryType(d.DeliveryType),
		DeliveryAddress:          d.DeliveryAddress,
		PaymentMethod:            domain.PaymentMethod(d.PaymentMethod),
		PaymentStatus:            domain.PaymentStatus(d.PaymentStatus),
		Status:                   domain.OrderStatus(d.Status),
		SpecialInstructions:      d.SpecialInstructions,
		EstimatedDeliveryMinutes: d.EstimatedMinutes,
		CreatedAt:                d.CreatedAt,
		UpdatedAt:                d.UpdatedAt,
	}
}
