// Package api is the HTTP front-end of the ingestion service.
//
// Routes:
//
//	POST   /api/books                   ingest one document (raw body or multipart "file")
//	GET    /api/books                   list stored books
//	GET    /api/books/{id}              stored book as JSON
//	DELETE /api/books/{id}              delete a stored book
//	GET    /api/books/{id}/export       render a stored book (?format=json|md|pdf)
//	GET    /api/ingestions              recent ingestion records (?limit=N)
//	GET    /api/ingestions/{ticket}     state of one ingestion
//	GET    /api/stats                   coordinator counters
//	GET    /health                      liveness
//
// Ingestion outcomes map to status codes: 201 success, 422 parse or
// normalization error, 409 duplicate id, 503 storage error.
package api
