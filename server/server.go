package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// maxUploadBytes bounds multipart request parsing.
const maxUploadBytes = 32 << 20

// Server represents the workshop API server
type Server struct {
	config  *Config
	service *WorkshopService
	cache   Cache
	grpcSrv *grpc.Server
}

// NewServer creates a new workshop API server
func NewServer(config *Config) (*Server, error) {
	// Create DynamoDB record store
	store, err := NewDynamoDBStore(config.AWS.Region, config.AWS.DynamoDB.WorkshopsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB store: %v", err)
	}

	// Create S3 blob store
	blobs, err := NewS3BlobStore(config.AWS.Region, config.AWS.S3.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 blob store: %v", err)
	}

	// Create Redis cache or use NoOpCache if Redis is not available
	var cache Cache = &NoOpCache{}
	if config.AWS.ElastiCache.Address != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		redisCache, err := NewRedisCache(ctx, config.AWS.ElastiCache.Address, config.AWS.ElastiCache.TTL)
		if err != nil {
			log.Printf("Warning: Failed to create Redis cache: %v. Continuing with NoOpCache.", err)
		} else {
			cache = redisCache
			log.Printf("Successfully connected to Redis cache at %s", config.AWS.ElastiCache.Address)
		}
	} else {
		log.Printf("No Redis address configured. Using NoOpCache.")
	}

	// Create gRPC server
	grpcSrv := grpc.NewServer()
	reflection.Register(grpcSrv)

	return &Server{
		config:  config,
		service: NewWorkshopService(store, blobs, cache),
		cache:   cache,
		grpcSrv: grpcSrv,
	}, nil
}

// Start starts the server
func (s *Server) Start() error {
	// Start gRPC server
	go func() {
		addr := fmt.Sprintf(":%d", s.config.Server.GRPCPort)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Fatalf("Failed to listen on %s: %v", addr, err)
		}
		log.Printf("gRPC server listening on %s", addr)
		if err := s.grpcSrv.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	// Start HTTP server
	mux := s.routes()

	addr := fmt.Sprintf(":%d", s.config.Server.HTTPPort)
	log.Printf("HTTP server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

// routes builds the HTTP mux
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/workshops", s.handleWorkshops)
	mux.HandleFunc("/api/workshops/", s.handleWorkshopOrSlides)
	return mux
}

// Stop stops the server
func (s *Server) Stop() {
	s.grpcSrv.GracefulStop()
	if s.cache != nil {
		if closer, ok := s.cache.(io.Closer); ok {
			closer.Close()
		}
	}
}

// handleRoot handles the root endpoint
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	fmt.Fprintf(w, "Workshop API is running!")
}

// handleHealth handles the health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// handleWorkshops handles the /api/workshops endpoint
func (s *Server) handleWorkshops(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		summaries, err := s.service.ListWorkshops(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summaries)

	case http.MethodPost:
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, &ValidationError{Field: "multipart body"})
			return
		}

		input := &CreateWorkshopInput{
			Name:        r.FormValue("name"),
			Description: r.FormValue("description"),
			Duration:    r.FormValue("duration"),
			Difficulty:  r.FormValue("difficulty"),
			Materials:   r.FormValue("materials"),
			Objectives:  r.FormValue("objectives"),
			Category:    r.FormValue("category"),
			AgeRange:    r.FormValue("ageRange"),
		}

		cover, err := formFileBytes(r, "coverImage")
		if err != nil {
			writeError(w, err)
			return
		}
		input.CoverImage = cover

		workshop, err := s.service.CreateWorkshop(ctx, input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, workshop)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleWorkshopOrSlides handles the /api/workshops/{id} and
// /api/workshops/{id}/slides endpoints
func (s *Server) handleWorkshopOrSlides(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/workshops/")
	parts := strings.Split(path, "/")

	if len(parts) == 1 && parts[0] != "" {
		s.handleWorkshop(w, r, parts[0])
	} else if len(parts) == 2 && parts[1] == "slides" {
		s.handleSlides(w, r, parts[0])
	} else {
		http.NotFound(w, r)
	}
}

// handleWorkshop handles operations on a specific workshop
func (s *Server) handleWorkshop(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		workshop, err := s.service.GetWorkshop(ctx, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, workshop)

	case http.MethodDelete:
		msg, err := s.service.DeleteWorkshop(ctx, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSlides handles slide creation for a workshop
func (s *Server) handleSlides(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, &ValidationError{Field: "multipart body"})
		return
	}

	description := r.FormValue("description")

	// The slide image is optional
	var image []byte
	if file, _, err := r.FormFile("image"); err == nil {
		data, err := ioutil.ReadAll(file)
		file.Close()
		if err != nil {
			writeError(w, fmt.Errorf("failed to read image: %v", err))
			return
		}
		image = data
	}

	slide, workshop, err := s.service.AddSlide(ctx, id, description, image)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"slide":    slide,
		"workshop": workshop,
	})
}

// formFileBytes reads the named multipart file into memory
func formFileBytes(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, &ValidationError{Field: field}
		}
		return nil, &ValidationError{Field: field}
	}
	defer file.Close()

	data, err := ioutil.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", field, err)
	}

	return data, nil
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// writeError maps service errors to HTTP statuses
func writeError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var mediaErr *UnsupportedMediaError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFoundErr.Error()})
	case errors.As(err, &mediaErr):
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": mediaErr.Error()})
	default:
		log.Printf("Request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
