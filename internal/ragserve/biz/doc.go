// Package biz provides business logic for the ragserve service:
// document ingestion, vector retrieval, conversation memory and
// grounded question answering.
package biz
