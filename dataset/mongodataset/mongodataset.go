/*
Package mongodataset provides an implementation of dataset.Reader
that reads records from a MongoDB collection.
*/
package mongodataset

import (
	"context"

	"github.com/xh3b4sd/tracer"
	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/pbanos/arboretum/dataset"
)

// DefaultCollectionName is the collection records are read from
// when none is given
const DefaultCollectionName = "records"

type mongodataset struct {
	session    *mgo.Session
	collection string
	query      bson.M
}

/*
Open takes a MongoDB database session, a collection name and a query
and returns a dataset.Reader over the documents of the collection in
the session's default database that match the query. Every document
is a record, with its _id left out.
*/
func Open(session *mgo.Session, collection string, query bson.M) dataset.Reader {
	if collection == "" {
		collection = DefaultCollectionName
	}
	return &mongodataset{session, collection, query}
}

func (mds *mongodataset) Records(ctx context.Context) ([]dataset.Record, error) {
	return dataset.Collect(ctx, mds)
}

func (mds *mongodataset) Count(context.Context) (int, error) {
	s := mds.session.Copy()
	defer s.Close()
	count, err := s.DB("").C(mds.collection).Find(mds.query).Count()
	if err != nil {
		return 0, tracer.Mask(err)
	}
	return count, nil
}

func (mds *mongodataset) Read(ctx context.Context) (<-chan dataset.Record, <-chan error) {
	records := make(chan dataset.Record)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(records)
		s := mds.session.Copy()
		defer s.Close()
		iter := s.DB("").C(mds.collection).Find(mds.query).Iter()
		var doc bson.M
		for iter.Next(&doc) {
			r := make(dataset.Record, len(doc))
			for k, v := range doc {
				if k != "_id" {
					r[k] = v
				}
			}
			doc = nil
			select {
			case <-ctx.Done():
				iter.Close()
				errs <- ctx.Err()
				return
			case records <- r:
			}
		}
		if err := iter.Close(); err != nil {
			errs <- tracer.Mask(err)
		}
	}()
	return records, errs
}
