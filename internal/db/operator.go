package db

import (
	"context"
	"errors"

	"github.com/ukydev/fleet-replay/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrOperatorNotFound is returned when no operator has the requested username.
var ErrOperatorNotFound = errors.New("operator not found")

// MongoOperatorCollection implements OperatorCollection for MongoDB
type MongoOperatorCollection struct {
	Collection *mongo.Collection
}

// InsertOperator inserts a new, active operator
func (c *MongoOperatorCollection) InsertOperator(ctx context.Context, operator models.Operator) error {
	if c.Collection == nil {
		return errNilCollection
	}
	operator.IsActive = true
	_, err := c.Collection.InsertOne(ctx, operator)
	return err
}

// FindOperatorByUsername finds an operator by username
func (c *MongoOperatorCollection) FindOperatorByUsername(ctx context.Context, username string) (*models.Operator, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	var operator models.Operator
	err := c.Collection.FindOne(ctx, bson.M{"username": username}).Decode(&operator)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrOperatorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &operator, nil
}

// StaticOperators serves a fixed set of operators, typically the single
// account configured through the environment.
type StaticOperators struct {
	Operators []models.Operator
}

// InsertOperator appends an active operator.
func (s *StaticOperators) InsertOperator(_ context.Context, operator models.Operator) error {
	operator.IsActive = true
	s.Operators = append(s.Operators, operator)
	return nil
}

// FindOperatorByUsername returns a copy of the matching operator.
func (s *StaticOperators) FindOperatorByUsername(_ context.Context, username string) (*models.Operator, error) {
	for _, op := range s.Operators {
		if op.Username == username {
			found := op
			return &found, nil
		}
	}
	return nil, ErrOperatorNotFound
}
