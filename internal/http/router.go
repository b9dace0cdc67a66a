package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"builtf/backend/internal/config"
	"builtf/backend/internal/domain/notifications"
	"builtf/backend/internal/domain/requests"
	"builtf/backend/internal/domain/services"
	"builtf/backend/internal/domain/users"
	"builtf/backend/internal/handlers"
	"builtf/backend/internal/middleware"
	"builtf/backend/internal/store"

	"firebase.google.com/go/v4/auth"
	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	Cfg              config.Config
	AuthClient       *auth.Client
	Remote           store.Remote
	UsersSvc         *users.Service
	RequestsSvc      *requests.Service
	ServicesRepo     *services.Repo
	NotificationsSvc *notifications.Service
	ServiceImages    store.Uploader // bucket uploads for service images
	ProviderImages   store.Uploader // cloudinary uploads for provider images
	Uploads          *handlers.Uploads
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(d.Cfg.AllowedOrigins))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, 200, map[string]any{"ok": true, "ts": time.Now().UTC().Format(time.RFC3339)})
	})

	// ===== Auth (no token required) =====
	r.Post("/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			Fail(w, 400, "invalid json")
			return
		}

		// public registration is always a plain user; roles are granted
		// through admin tooling
		id, err := d.UsersSvc.Register(r.Context(), in.Email, in.Password, users.RoleUser)
		if err != nil {
			status, msg := mapUsersError(err)
			Fail(w, status, msg)
			return
		}
		if err := d.UsersSvc.SyncRoleClaims(r.Context(), id.UID, users.RoleUser); err != nil {
			// token claims catch up on the next sync
		}
		WriteJSON(w, 201, map[string]any{"uid": id.UID, "email": id.Email})
	})

	r.Post("/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			Fail(w, 400, "invalid json")
			return
		}

		id, err := d.UsersSvc.Login(r.Context(), in.Email, in.Password)
		if err != nil {
			Fail(w, 401, "invalid email or password")
			return
		}
		role, _ := d.UsersSvc.GetRole(r.Context(), id.UID)
		WriteJSON(w, 200, map[string]any{
			"uid":          id.UID,
			"email":        id.Email,
			"idToken":      id.IDToken,
			"refreshToken": id.RefreshToken,
			"role":         role,
		})
	})

	// ===== Public catalog reads =====
	r.Get("/v1/services", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.ServicesRepo.List(r.Context())
		if err != nil {
			status, msg := mapServicesError(err)
			Fail(w, status, msg)
			return
		}
		WriteJSON(w, 200, map[string]any{"services": out})
	})

	r.Get("/v1/services/{serviceId}", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.ServicesRepo.Get(r.Context(), chi.URLParam(r, "serviceId"))
		if err != nil {
			status, msg := mapServicesError(err)
			Fail(w, status, msg)
			return
		}
		WriteJSON(w, 200, out)
	})

	r.Get("/v1/services/{serviceId}/providers", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.ServicesRepo.ListProviders(r.Context(), chi.URLParam(r, "serviceId"))
		if err != nil {
			status, msg := mapServicesError(err)
			Fail(w, status, msg)
			return
		}
		WriteJSON(w, 200, map[string]any{"providers": out})
	})

	r.Get("/v1/services/{serviceId}/providers/{providerId}", func(w http.ResponseWriter, r *http.Request) {
		out, err := d.ServicesRepo.GetProvider(r.Context(), chi.URLParam(r, "serviceId"), chi.URLParam(r, "providerId"))
		if err != nil {
			status, msg := mapServicesError(err)
			Fail(w, status, msg)
			return
		}
		WriteJSON(w, 200, out)
	})

	// ===== Protected routes =====
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.WithAuth(d.AuthClient))

		pr.Get("/v1/me", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			WriteJSON(w, 200, map[string]any{
				"uid":    au.UID,
				"email":  au.Email,
				"claims": au.Claims,
			})
		})

		pr.Get("/v1/me/profile", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			p, err := d.UsersSvc.GetProfile(r.Context(), au.UID)
			if err != nil {
				status, msg := mapUsersError(err)
				Fail(w, status, msg)
				return
			}
			if p == nil {
				Fail(w, 404, "profile not found")
				return
			}
			WriteJSON(w, 200, p)
		})

		pr.Patch("/v1/me/profile", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			var in users.UpdateProfileInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				Fail(w, 400, "invalid json")
				return
			}
			if err := d.UsersSvc.UpdateProfileFor(r.Context(), au.UID, in); err != nil {
				status, msg := mapUsersError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, map[string]any{"ok": true})
		})

		// ===== Bookings =====
		pr.Post("/v1/requests", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			var in requests.CreateRequestInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				Fail(w, 400, "invalid json")
				return
			}

			// booking form prefills from the caller's profile
			if in.UserName == "" || in.UserContact == "" || in.UserAddress == "" {
				if p, err := d.UsersSvc.GetProfile(r.Context(), au.UID); err == nil && p != nil {
					if in.UserName == "" {
						in.UserName = p.Name
					}
					if in.UserContact == "" {
						in.UserContact = p.Contact
					}
					if in.UserAddress == "" {
						in.UserAddress = p.Address
					}
				}
			}

			id, err := d.RequestsSvc.Create(r.Context(), au.UID, in)
			if err != nil {
				status, msg := mapRequestsError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 201, map[string]any{"id": id, "status": requests.StatusPending})
		})

		pr.Get("/v1/me/requests", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			out, err := d.RequestsSvc.ListForUser(r.Context(), au.UID)
			if err != nil {
				status, msg := mapRequestsError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, map[string]any{"requests": out})
		})

		// server-sent events stream of the caller's bookings; every event
		// carries the full current list
		pr.Get("/v1/me/requests/stream", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			flusher, ok := w.(http.Flusher)
			if !ok {
				Fail(w, 500, "streaming unsupported")
				return
			}

			q := d.RequestsSvc.WatchForUser(au.UID)
			updates := make(chan []store.Record, 8)
			unsub := q.OnSnapshot(func(recs []store.Record) {
				select {
				case updates <- recs:
				default:
				}
			})
			defer unsub()

			if err := q.Start(r.Context()); err != nil {
				Fail(w, 500, err.Error())
				return
			}
			defer q.Stop()

			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(200)
			flusher.Flush()

			for {
				select {
				case <-r.Context().Done():
					return
				case recs := <-updates:
					payload, err := json.Marshal(recs)
					if err != nil {
						continue
					}
					fmt.Fprintf(w, "data: %s\n\n", payload)
					flusher.Flush()
				}
			}
		})

		pr.Get("/v1/me/notifications", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			unreadOnly := r.URL.Query().Get("unreadOnly") == "true"
			out, err := d.NotificationsSvc.List(r.Context(), au.UID, unreadOnly)
			if err != nil {
				Fail(w, 500, err.Error())
				return
			}
			WriteJSON(w, 200, map[string]any{"notifications": out})
		})

		pr.Post("/v1/me/notifications/{notificationId}/read", func(w http.ResponseWriter, r *http.Request) {
			au, _ := middleware.GetAuthUser(r.Context())
			if err := d.NotificationsSvc.MarkRead(r.Context(), au.UID, chi.URLParam(r, "notificationId")); err != nil {
				Fail(w, 500, err.Error())
				return
			}
			WriteJSON(w, 200, map[string]any{"ok": true})
		})

		// ===== Admin: booking dashboard =====
		pr.Get("/v1/requests", func(w http.ResponseWriter, r *http.Request) {
			if !d.requireAdmin(w, r) {
				return
			}
			out, err := d.RequestsSvc.ListAll(r.Context())
			if err != nil {
				status, msg := mapRequestsError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, map[string]any{"requests": out})
		})

		pr.Patch("/v1/requests/{requestId}/status", func(w http.ResponseWriter, r *http.Request) {
			if !d.requireAdmin(w, r) {
				return
			}
			var in struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				Fail(w, 400, "invalid json")
				return
			}
			out, err := d.RequestsSvc.UpdateStatus(r.Context(), chi.URLParam(r, "requestId"), strings.TrimSpace(in.Status))
			if err != nil {
				status, msg := mapRequestsError(err)
				Fail(w, status, msg)
				return
			}
			WriteJSON(w, 200, out)
		})

		// ===== Admin: services catalog =====
		pr.Post("/v1/services", func(w http.ResponseWriter, r *http.Request) {
			if !d.requireAdmin(w, r) {
				return
			}
			var in services.CreateServiceInput
			files, err := decodeMultipart(r, &in, "images")
			if err != nil {
				Fail(w, 400, err.Error())
				return
			}
			in.Trim()
			if in.SectionTitle == "" {
				Fail(w, 400, "sectionTitle is required")
				return
			}

			record := store.Record{
				"sectionTitle": in.SectionTitle,
				"details":      in.Details,
				"status":       in.Status,
				"createdAt":    store.ServerTimestamp,
				"updatedAt":    store.ServerTimestamp,
			}
			for k, v := range services.SearchFields(in.SectionTitle) {
				record[k] = v
			}

			coll := d.servicesCollection()
			if err := coll.Add(r.Context(), record, files...); err != nil {
				Fail(w, 500, err.Error())
				return
			}
			WriteJSON(w, 201, map[string]any{"ok": true})
		})

		pr.Patch("/v1/services/{serviceId}", func(w http.ResponseWriter, r *http.Request) {
			if !d.requireAdmin(w, r) {
				return
			}
			var in services.UpdateServiceInput
			files, err := decodeMultipart(r, &in, "images")
			if err != nil {
				Fail(w, 400, err.Error())
				return
			}

			patch := store.Record{"updatedAt": store.ServerTimestamp}
			if in.SectionTitle != nil {
				patch["sectionTitle"] = strings.TrimSpace(*in.SectionTitle)
				for k, v := range services.SearchFields(*in.SectionTitle) {
					patch[k] = v
				}
			}
			if in.Details != nil {
				patch["details"] = strings.TrimSpace(*in.Details)
			}
			if in.Status != nil {
				patch["status"] = strings.TrimSpace(*in.Status)
			}

			coll := d.servicesCollection()
			if err := coll.Update(r.Context(), chi.URLParam(r, "serviceId"), patch, files...); err != nil {
				Fail(w, 500, err.Error())
				return
			}
			WriteJSON(w, 200, map[string]any{"ok": true})
		})

		pr.Delete("/v1/services/{serviceId}", func(w http.ResponseWriter, r *http.Request) {
			if !d.requireAdmin(w, r) {
				return
			}
			coll := d.servicesCollection()
			if err := coll.Delete(r.Context(), chi.URLParam(r, "serviceId")); err != nil {
				Fail(w, 500, err.Error())
				return
			}
			WriteJSON(w, 200, map[string]any{"ok": true})
		})

		// ===== Admin: providers =====
		pr.Post("/v1/services/{serviceId}/providers", func(w http.ResponseWriter, r *http.Request) {
			if !d.requireAdmin(w, r) {
				return
			}
			d.upsertProvider(w, r, chi.URLParam(r, "serviceId"), "")
		})

		pr.Patch("/v1/services/{serviceId}/providers/{providerId}", func(w http.ResponseWriter, r *http.Request) {
			if !d.requireAdmin(w, r) {
				return
			}
			d.upsertProvider(w, r, chi.URLParam(r, "serviceId"), chi.URLParam(r, "providerId"))
		})

		pr.Delete("/v1/services/{serviceId}/providers/{providerId}", func(w http.ResponseWriter, r *http.Request) {
			if !d.requireAdmin(w, r) {
				return
			}
			coll := d.providersCollection(chi.URLParam(r, "serviceId"))
			if err := coll.Delete(r.Context(), chi.URLParam(r, "providerId")); err != nil {
				Fail(w, 500, err.Error())
				return
			}
			WriteJSON(w, 200, map[string]any{"ok": true})
		})

		// ===== Admin: user management =====
		pr.Get("/v1/users", func(w http.ResponseWriter, r *http.Request) {
			if !d.requireAdmin(w, r) {
				return
			}
			coll := store.NewCollection(d.Remote, users.ColUsers)
			out, err := coll.Fetch(r.Context())
			if err != nil {
				Fail(w, 500, err.Error())
				return
			}
			WriteJSON(w, 200, map[string]any{"users": out})
		})

		pr.Patch("/v1/users/{uid}", func(w http.ResponseWriter, r *http.Request) {
			if !d.requireAdmin(w, r) {
				return
			}
			uid := chi.URLParam(r, "uid")
			var in users.AdminUpdateInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				Fail(w, 400, "invalid json")
				return
			}
			in.Trim()
			if in.Role != nil && !users.ValidRole(*in.Role) {
				Fail(w, 400, "unknown role")
				return
			}

			fields := in.Fields()
			if len(fields) == 0 {
				WriteJSON(w, 200, map[string]any{"ok": true})
				return
			}
			if err := d.Remote.Merge(r.Context(), users.ColUsers+"/"+uid, fields); err != nil {
				Fail(w, 500, err.Error())
				return
			}
			if in.Role != nil {
				if err := d.UsersSvc.SyncRoleClaims(r.Context(), uid, *in.Role); err != nil {
					Fail(w, 500, "role saved but claim sync failed")
					return
				}
			}
			WriteJSON(w, 200, map[string]any{"ok": true})
		})

		pr.Delete("/v1/users/{uid}", func(w http.ResponseWriter, r *http.Request) {
			if !d.requireAdmin(w, r) {
				return
			}
			if err := d.Remote.Delete(r.Context(), users.ColUsers+"/"+chi.URLParam(r, "uid")); err != nil {
				Fail(w, 500, err.Error())
				return
			}
			WriteJSON(w, 200, map[string]any{"ok": true})
		})

		// ===== Admin: direct-to-bucket uploads =====
		if d.Uploads != nil {
			pr.Post("/v1/uploads/signed-url", func(w http.ResponseWriter, r *http.Request) {
				if !d.requireAdmin(w, r) {
					return
				}
				d.Uploads.CreateSignedUploadURL(w, r)
			})
			pr.Post("/v1/uploads/signed-urls", func(w http.ResponseWriter, r *http.Request) {
				if !d.requireAdmin(w, r) {
					return
				}
				d.Uploads.CreateSignedUploadURLs(w, r)
			})
		}
	})

	return r
}

func (d RouterDeps) servicesCollection() *store.Collection {
	opts := []store.CollectionOption{store.WithSchema(services.ServiceFields...)}
	if d.ServiceImages != nil {
		opts = append(opts, store.WithUploader(d.ServiceImages))
	}
	return store.NewCollection(d.Remote, services.ColServices, opts...)
}

func (d RouterDeps) providersCollection(serviceID string) *store.Collection {
	opts := []store.CollectionOption{store.WithSchema(services.ProviderFields...)}
	if d.ProviderImages != nil {
		opts = append(opts, store.WithUploader(d.ProviderImages))
	}
	return store.NewCollection(d.Remote, services.ProvidersPath(serviceID), opts...)
}

// upsertProvider handles create (providerId empty) and update. Provider
// images go through Cloudinary: one "profileimg" file, any number of
// "workImage" files.
func (d RouterDeps) upsertProvider(w http.ResponseWriter, r *http.Request, serviceID, providerID string) {
	var in services.ProviderInput
	if err := parseMultipartPayload(r, &in); err != nil {
		Fail(w, 400, err.Error())
		return
	}
	in.Trim()
	if providerID == "" && (in.Name == nil || *in.Name == "") {
		Fail(w, 400, "Name is required")
		return
	}

	fields := in.Fields()
	if d.ProviderImages != nil && r.MultipartForm != nil {
		if urls, err := d.uploadFormImages(r, serviceID, "profileimg"); err != nil {
			Fail(w, 500, err.Error())
			return
		} else if len(urls) > 0 {
			fields["profileimg"] = urls[0]
		}
		if urls, err := d.uploadFormImages(r, serviceID, "workImage"); err != nil {
			Fail(w, 500, err.Error())
			return
		} else if len(urls) > 0 {
			fields["workImage"] = urls
		}
	}

	coll := d.providersCollection(serviceID)
	if providerID == "" {
		if err := coll.Add(r.Context(), fields); err != nil {
			Fail(w, 500, err.Error())
			return
		}
		WriteJSON(w, 201, map[string]any{"ok": true})
		return
	}
	if err := coll.Update(r.Context(), providerID, fields); err != nil {
		Fail(w, 500, err.Error())
		return
	}
	WriteJSON(w, 200, map[string]any{"ok": true})
}

func (d RouterDeps) uploadFormImages(r *http.Request, serviceID, field string) ([]string, error) {
	fhs := r.MultipartForm.File[field]
	urls := make([]string, 0, len(fhs))
	for _, fh := range fhs {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		objectPath := "providers/" + serviceID + "/" + fh.Filename
		url, err := d.ProviderImages.Upload(r.Context(), objectPath, f, fh.Header.Get("Content-Type"))
		f.Close()
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// requireAdmin gates an admin route: token claims first, users doc role as
// fallback.
func (d RouterDeps) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	au, ok := middleware.GetAuthUser(r.Context())
	if !ok {
		Fail(w, 401, "unauthorized")
		return false
	}
	if middleware.IsAdmin(au.Claims) {
		return true
	}
	role, err := d.UsersSvc.GetRole(r.Context(), au.UID)
	if err == nil && role == users.RoleAdmin {
		return true
	}
	Fail(w, 403, "admin role required")
	return false
}

// decodeMultipart reads either a JSON body or a multipart form with a JSON
// "data" field plus attached files.
func decodeMultipart(r *http.Request, dst any, fileField string) ([]store.File, error) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
			return nil, errInvalidJSON
		}
		return nil, nil
	}

	if err := parseMultipartPayload(r, dst); err != nil {
		return nil, err
	}

	var files []store.File
	for _, fh := range r.MultipartForm.File[fileField] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, store.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func parseMultipartPayload(r *http.Request, dst any) error {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
			return errInvalidJSON
		}
		return nil
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return err
	}
	if data := r.FormValue("data"); data != "" {
		if err := json.Unmarshal([]byte(data), dst); err != nil {
			return errInvalidJSON
		}
	}
	return nil
}

func mapUsersError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case users.IsErrUnauthenticated(err):
		return 401, err.Error()
	case users.IsErrNotFound(err):
		return 404, err.Error()
	case users.IsErrBadRequest(err):
		return 400, err.Error()
	default:
		return 500, err.Error()
	}
}

func mapRequestsError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case requests.IsErrNotFound(err):
		return 404, err.Error()
	case requests.IsErrBadRequest(err):
		return 400, err.Error()
	case requests.IsErrInvalidTransition(err):
		return 409, err.Error()
	default:
		return 500, err.Error()
	}
}

func mapServicesError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case services.IsErrNotFound(err):
		return 404, err.Error()
	case services.IsErrBadRequest(err):
		return 400, err.Error()
	default:
		return 500, err.Error()
	}
}
