package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"community-service/internal/mocks"
	"community-service/internal/models"
	"community-service/internal/repositories"
)

func setupGroupRouter(handler *GroupHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.GET("/groups", handler.ListGroups)
	r.GET("/groups/joined", handler.ListJoinedGroups)
	r.POST("/groups/:group_id/join", handler.JoinGroup)
	return r
}

func TestListGroupsSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("ListActiveGroups", mock.Anything).
		Return([]models.Group{{ID: "g1", Name: "First Trimester"}, {ID: "g2", Name: "Sleep Help"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	groupRepo.AssertExpectations(t)
}

func TestListJoinedGroupsSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("ListJoinedGroups", mock.Anything, "u1").
		Return([]models.Group{{ID: "g1", Name: "First Trimester"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/joined", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	groupRepo.AssertExpectations(t)
}

func TestJoinGroupSuccess(t *testing.T) {
	groupID := uuid.NewString()
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, groupID).Return(models.Group{ID: groupID, Name: "Sleep Help"}, nil).Once()
	groupRepo.On("JoinGroup", mock.Anything, "u1", groupID).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/"+groupID+"/join", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"already_member":false`)
	groupRepo.AssertExpectations(t)
}

func TestJoinGroupAlreadyMemberIsNotAnError(t *testing.T) {
	groupID := uuid.NewString()
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, groupID).Return(models.Group{ID: groupID}, nil).Once()
	groupRepo.On("JoinGroup", mock.Anything, "u1", groupID).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/"+groupID+"/join", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"already_member":true`)
	groupRepo.AssertExpectations(t)
}

func TestJoinGroupInvalidID(t *testing.T) {
	handler := NewGroupHandler(new(mocks.GroupRepositoryMock), nil)
	router := setupGroupRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/groups/not-a-uuid/join", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJoinGroupNotFound(t *testing.T) {
	groupID := uuid.NewString()
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, groupID).Return(models.Group{}, repositories.ErrGroupNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/"+groupID+"/join", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	groupRepo.AssertNotCalled(t, "JoinGroup", mock.Anything, mock.Anything, mock.Anything)
}
