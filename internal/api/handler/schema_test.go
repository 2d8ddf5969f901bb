package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/dataconnect/internal/access"
	"github.com/edvin/dataconnect/internal/core"
	"github.com/edvin/dataconnect/internal/model"
)

func TestSchemaDatabases(t *testing.T) {
	svc := &mockSchema{}
	svc.On("ListDatabases", mock.Anything, access.Principal{CompanyID: "5"}, validID, "sales", 20).
		Return([]string{"SALES", "SALES_ARCHIVE"}, nil)

	rec := httptest.NewRecorder()
	r := withCompany(withChiURLParam(newRequest(http.MethodGet, "/integrations/"+validID+"/databases?search=sales&limit=20", nil), "id", validID), "5")
	NewSchema(svc).Databases(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":["SALES","SALES_ARCHIVE"]}`, rec.Body.String())
}

func TestSchemaDatabases_BadLimit(t *testing.T) {
	svc := &mockSchema{}
	rec := httptest.NewRecorder()
	r := withCompany(withChiURLParam(newRequest(http.MethodGet, "/integrations/"+validID+"/databases?limit=-5", nil), "id", validID), "5")

	NewSchema(svc).Databases(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "ListDatabases")
}

func TestSchemaDatabases_RemoteErrorIsBadGateway(t *testing.T) {
	svc := &mockSchema{}
	svc.On("ListDatabases", mock.Anything, mock.Anything, validID, "", 0).Return(nil, errors.New("warehouse suspended"))

	rec := httptest.NewRecorder()
	r := withCompany(withChiURLParam(newRequest(http.MethodGet, "/integrations/"+validID+"/databases", nil), "id", validID), "5")
	NewSchema(svc).Databases(rec, r)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSchemaTables(t *testing.T) {
	svc := &mockSchema{}
	svc.On("ListTables", mock.Anything, mock.Anything, validID, "analytics", "", 0).Return(nil, nil).Once()
	svc.On("ListTables", mock.Anything, mock.Anything, validID, "secret", "", 0).Return(nil, core.ErrUnauthorized).Once()

	params := func(db string) map[string]string { return map[string]string{"id": validID, "database": db} }

	rec := httptest.NewRecorder()
	NewSchema(svc).Tables(rec, withCompany(withChiURLParams(newRequest(http.MethodGet, "/tables", nil), params("analytics")), "5"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewSchema(svc).Tables(rec, withCompany(withChiURLParams(newRequest(http.MethodGet, "/tables", nil), params("secret")), "5"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPlatformKinds(t *testing.T) {
	rec := httptest.NewRecorder()
	PlatformKinds(func() []model.PlatformKind {
		return []model.PlatformKind{model.KindLakehouse, model.KindWarehouse}
	})(rec, newRequest(http.MethodGet, "/platform-kinds", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":["lakehouse","warehouse"]}`, rec.Body.String())
}
