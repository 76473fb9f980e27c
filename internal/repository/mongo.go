package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/stridekart/shoe-store-api/internal/models"
)

// MongoStore implements Store on MongoDB. The order unit of work maps to a
// driver session transaction, so stock decrements and the order insert
// commit or roll back together. Requires a replica set (standalone servers
// do not support transactions).
type MongoStore struct {
	client   *mongo.Client
	products *mongo.Collection
	orders   *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	db := client.Database(database)
	return &MongoStore{
		client:   client,
		products: db.Collection("products"),
		orders:   db.Collection("orders"),
	}, nil
}

func (s *MongoStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &p, nil
}

func (s *MongoStore) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Brand != "" {
		query["brand"] = filter.Brand
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	price := bson.M{}
	if filter.MinPrice != nil {
		price["$gte"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		price["$lte"] = *filter.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}
	if filter.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{bson.M{"name": re}, bson.M{"brand": re}}
	}

	total, err := s.products.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := s.products.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	return products, int(total), nil
}

func (s *MongoStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := s.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &OrderNotFoundError{OrderID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return &o, nil
}

func (s *MongoStore) ListOrders(ctx context.Context, page, limit int) ([]models.Order, int, error) {
	total, err := s.orders.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	page, limit = normalizePage(page, limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := s.orders.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}
	return orders, int(total), nil
}

// UpdateOrderStatus writes only the patched fields via $set, so concurrent
// status and payment updates to the same order both land.
func (s *MongoStore) UpdateOrderStatus(ctx context.Context, id string, patch OrderStatusPatch) (*models.Order, error) {
	set := bson.M{"updatedAt": patch.UpdatedAt}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.PaymentStatus != nil {
		set["paymentStatus"] = *patch.PaymentStatus
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var o models.Order
	err := s.orders.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &OrderNotFoundError{OrderID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}
	return &o, nil
}

// InTx wraps fn in a session transaction. Transient transaction errors
// that survive the driver's own retries surface as ErrTxConflict.
func (s *MongoStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(&mongoTx{store: s, sess: sc})
	})
	if err != nil {
		if isTransientTxError(err) {
			return ErrTxConflict
		}
		return err
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// mongoTx pins every operation of the unit of work to the session context.
type mongoTx struct {
	store *MongoStore
	sess  mongo.SessionContext
}

func (tx *mongoTx) Product(ctx context.Context, id string) (*models.Product, error) {
	return tx.store.GetProduct(tx.sess, id)
}

func (tx *mongoTx) SaveProduct(ctx context.Context, p *models.Product) error {
	res, err := tx.store.products.ReplaceOne(tx.sess, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("save product %s: %w", p.ID, err)
	}
	if res.MatchedCount == 0 {
		return &ProductNotFoundError{ProductID: p.ID}
	}
	return nil
}

func (tx *mongoTx) CreateOrder(ctx context.Context, o *models.Order) error {
	if _, err := tx.store.orders.InsertOne(tx.sess, o); err != nil {
		return fmt.Errorf("create order %s: %w", o.ID, err)
	}
	return nil
}

func isTransientTxError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.HasErrorLabel("TransientTransactionError") ||
			cmdErr.HasErrorLabel("UnknownTransactionCommitResult")
	}
	return false
}
