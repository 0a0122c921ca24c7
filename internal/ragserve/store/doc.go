// Package store 提供向量存储实现。
//
// LocalStore 将索引持久化到本地磁盘，适用于单机部署；
// MilvusStore 基于 Milvus 集群，适用于大规模数据。
package store
