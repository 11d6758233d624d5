package garage

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"reppyroute/internal/domain"
	"reppyroute/internal/middleware"
	"reppyroute/internal/repository"
	"reppyroute/internal/storage"
	"reppyroute/internal/testutil"
)

type fixture struct {
	db    *gorm.DB
	svc   *Service
	store *storage.LocalStore
	jane  *domain.Profile
	mark  *domain.Profile
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	store := storage.NewLocalStore(t.TempDir(), "/static/uploads")
	return &fixture{
		db:    db,
		svc:   NewService(db, repository.NewVehicleRepository(db), repository.NewDocumentRepository(db), store, 1<<20),
		store: store,
		jane:  testutil.CreateProfile(t, db, "Jane Doe", domain.RoleCarOwner),
		mark:  testutil.CreateProfile(t, db, "Mark Lee", domain.RoleCarOwner),
	}
}

func (f *fixture) objectExists(key string) bool {
	_, err := os.Stat(filepath.Join(f.store.BaseDir(), filepath.FromSlash(key)))
	return err == nil
}

func TestVehicleCRUD(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	v, err := f.svc.CreateVehicle(ctx, f.jane.ID, VehicleInput{Make: " Toyota ", Model: "Camry", Year: 2018, VIN: "jt2bg22k1w0123456"})
	require.NoError(t, err)
	assert.Equal(t, "Toyota", v.Make)
	assert.Equal(t, "JT2BG22K1W0123456", v.VIN)

	_, err = f.svc.UpdateVehicle(ctx, f.mark.ID, v.ID, VehicleInput{Make: "Honda", Model: "Civic", Year: 2020})
	assert.ErrorIs(t, err, ErrVehicleNotFound)

	updated, err := f.svc.UpdateVehicle(ctx, f.jane.ID, v.ID, VehicleInput{Make: "Toyota", Model: "Camry", Year: 2018, Mileage: 90000, Nickname: "Daily"})
	require.NoError(t, err)
	assert.Equal(t, 90000, updated.Mileage)

	list, err := f.svc.ListVehicles(ctx, f.jane.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Daily", list[0].Nickname)

	assert.ErrorIs(t, f.svc.DeleteVehicle(ctx, f.mark.ID, v.ID), ErrVehicleNotFound)
	require.NoError(t, f.svc.DeleteVehicle(ctx, f.jane.ID, v.ID))

	list, err = f.svc.ListVehicles(ctx, f.jane.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteVehicleKeepsDocumentsAndRequests(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	v, err := f.svc.CreateVehicle(ctx, f.jane.ID, VehicleInput{Make: "Ford", Model: "Focus", Year: 2012})
	require.NoError(t, err)
	d, err := f.svc.UploadDocument(ctx, f.jane.ID, DocumentInput{Title: "Invoice", VehicleID: &v.ID},
		testutil.FileHeader(t, "file", "invoice.png", testutil.PNG))
	require.NoError(t, err)

	req := &domain.RepairRequest{
		CarOwnerID: f.jane.ID, VehicleID: &v.ID, CarMake: "Ford", CarModel: "Focus", CarYear: 2012,
		IssueType: "engine", Description: "Rattle", Location: "Springfield",
		PreferredServiceType: domain.ServiceAny, Status: domain.RequestOpen,
	}
	require.NoError(t, f.db.Create(req).Error)

	require.NoError(t, f.svc.DeleteVehicle(ctx, f.jane.ID, v.ID))

	docs, err := f.svc.ListDocuments(ctx, f.jane.ID, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, d.ID, docs[0].ID)
	assert.Nil(t, docs[0].VehicleID)

	var reloaded domain.RepairRequest
	require.NoError(t, f.db.First(&reloaded, req.ID).Error)
	assert.Nil(t, reloaded.VehicleID)
	assert.Equal(t, "Ford", reloaded.CarMake)
}

func TestDocumentUploadAndDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d, err := f.svc.UploadDocument(ctx, f.jane.ID, DocumentInput{Title: " Inspection "},
		testutil.FileHeader(t, "file", "report.pdf", []byte("%PDF-1.4\n%fake")))
	require.NoError(t, err)
	assert.Equal(t, "Inspection", d.Title)
	assert.Equal(t, "other", d.DocType)
	assert.Equal(t, "application/pdf", d.MimeType)
	assert.True(t, f.objectExists(d.ObjectKey))

	assert.ErrorIs(t, f.svc.DeleteDocument(ctx, f.mark.ID, d.ID), ErrNotFound)
	assert.True(t, f.objectExists(d.ObjectKey))

	require.NoError(t, f.svc.DeleteDocument(ctx, f.jane.ID, d.ID))
	assert.False(t, f.objectExists(d.ObjectKey))

	_, err = f.svc.UploadDocument(ctx, f.jane.ID, DocumentInput{Title: "Notes"},
		testutil.FileHeader(t, "file", "notes.txt", []byte("plain text")))
	assert.ErrorIs(t, err, ErrUpload)

	other, err := f.svc.CreateVehicle(ctx, f.mark.ID, VehicleInput{Make: "Kia", Model: "Rio", Year: 2015})
	require.NoError(t, err)
	_, err = f.svc.UploadDocument(ctx, f.jane.ID, DocumentInput{Title: "Sneaky", VehicleID: &other.ID},
		testutil.FileHeader(t, "file", "x.png", testutil.PNG))
	assert.ErrorIs(t, err, ErrVehicleNotFound)
}

func TestDocumentInsertFailureRemovesObject(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.Migrator().DropTable(&domain.Document{}))

	_, err := f.svc.UploadDocument(context.Background(), f.jane.ID, DocumentInput{Title: "Receipt"},
		testutil.FileHeader(t, "file", "r.png", testutil.PNG))
	require.Error(t, err)

	var files []string
	require.NoError(t, filepath.Walk(f.store.BaseDir(), func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, path)
		}
		return err
	}))
	assert.Empty(t, files)
}

func TestHandlerUploadAndGuards(t *testing.T) {
	f := setup(t)
	mech := testutil.CreateProfile(t, f.db, "Bob Smith", domain.RoleMechanic)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	roles := map[int64]domain.Role{f.jane.ID: domain.RoleCarOwner, mech.ID: domain.RoleMechanic}
	g := r.Group("/api/v1", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		middleware.SetIdentity(c, id, roles[id])
		c.Next()
	})
	NewHandler(f.svc).RegisterRoutes(g)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("title", "Registration"))
	require.NoError(t, w.WriteField("doc_type", "registration"))
	part, err := w.CreateFormFile("file", "reg.png")
	require.NoError(t, err)
	_, err = part.Write(testutil.PNG)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-User-ID", strconv.FormatInt(f.jane.ID, 10))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Data domain.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "registration", env.Data.DocType)
	assert.NotEmpty(t, env.Data.FileURL)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/vehicles", nil)
	req.Header.Set("X-User-ID", strconv.FormatInt(mech.ID, 10))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/vehicles", bytes.NewBufferString(`{"make":"Audi","model":"A4","year":1800}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", strconv.FormatInt(f.jane.ID, 10))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
