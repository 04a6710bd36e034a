/*
Package queue defines tasks to predict the records of a dataset
as well as an interface for a Queue to manage them, so that several
workers can share the prediction of a batch.

It also provides an in-memory implementation of the Queue interface
*/
package queue
