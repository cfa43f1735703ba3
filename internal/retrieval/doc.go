// Package retrieval implements the candidate-generation half of the
// recommendation pipeline: dense (embedding cosine) retrieval, sparse
// (BM25) retrieval over an inverted index, kNN-graph augmentation, and
// the blender that fuses the three signals and selects a diverse top-K.
package retrieval
