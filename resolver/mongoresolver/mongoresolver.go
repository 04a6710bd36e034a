/*
Package mongoresolver provides an implementation of resolver.Store
that uses a MongoDB database as backend.
*/
package mongoresolver

import (
	"context"
	"fmt"

	"github.com/xh3b4sd/tracer"
	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/pbanos/arboretum/resolver"
)

const (
	modelsCollectionName = "models"
)

type document struct {
	ID     string `bson:"_id"`
	Export string `bson:"export"`
}

type mongoStore struct {
	session *mgo.Session
}

/*
Open takes a MongoDB database session and returns a resolver.Store
that works on the models collection of the default database for that
session.
*/
func Open(session *mgo.Session) resolver.Store {
	return &mongoStore{session}
}

// Dial takes a MongoDB connection URL and returns a Store on a new
// session for it
func Dial(url string) (resolver.Store, error) {
	session, err := mgo.Dial(url)
	if err != nil {
		return nil, tracer.Mask(err)
	}
	return Open(session), nil
}

func (ms *mongoStore) Resolve(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := ms.session.Copy()
	defer s.Close()
	doc := &document{}
	err := s.DB("").C(modelsCollectionName).FindId(id).One(doc)
	if err == mgo.ErrNotFound {
		return nil, fmt.Errorf("resolving %s: %w", id, resolver.ErrModelNotFound)
	}
	if err != nil {
		return nil, tracer.Mask(err)
	}
	return []byte(doc.Export), nil
}

func (ms *mongoStore) Store(ctx context.Context, id string, export []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := ms.session.Copy()
	defer s.Close()
	_, err := s.DB("").C(modelsCollectionName).UpsertId(id, bson.M{"$set": bson.M{"export": string(export)}})
	if err != nil {
		return tracer.Mask(err)
	}
	return nil
}

func (ms *mongoStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := ms.session.Copy()
	defer s.Close()
	err := s.DB("").C(modelsCollectionName).RemoveId(id)
	if err != nil && err != mgo.ErrNotFound {
		return tracer.Mask(err)
	}
	return nil
}

func (ms *mongoStore) Close(ctx context.Context) error {
	ms.session.Close()
	return nil
}
