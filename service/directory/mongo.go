package directory

import (
	"context"

	"PPRelay/data/database/mgo/mongoutil"
	"PPRelay/module/user/model"
	"PPRelay/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Mongo struct {
	client *mongoutil.Client
	coll   *mongo.Collection
}

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	cli, err := mongoutil.NewMongoDB(ctx, &mongoutil.Config{Uri: uri, Database: database})
	if err != nil {
		return nil, err
	}
	return &Mongo{
		client: cli,
		coll:   cli.GetDB().Collection(model.User{}.CollectionName()),
	}, nil
}

func (m *Mongo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := m.coll.FindOne(ctx, bson.M{"user_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrUserNotFound.WrapMsg("", "user_id", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find user %s", id)
	}
	return &u, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Close(ctx)
}
