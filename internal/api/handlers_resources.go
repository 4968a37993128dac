package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/helmdesk/backend/internal/auth"
	"github.com/example/helmdesk/backend/internal/k8s"
)

// authorizeNamespace resolve a posse do namespace da rota; os
// handlers de recurso são wrappers finos depois disso.
func authorizeNamespace(s *Server, c *gin.Context) bool {
	ident := auth.CurrentIdentity(c)
	if _, _, err := s.Resolver.ResolveExisting(ident, "", c.Param("name")); err != nil {
		s.writeError(c, err)
		return false
	}
	return true
}

func listResourcesHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authorizeNamespace(s, c) {
			return
		}
		cs, ok := s.requireCluster(c)
		if !ok {
			return
		}

		kind, err := k8s.ParseKind(c.Param("kind"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      err.Error(),
				"suportados": k8s.SupportedKinds(),
			})
			return
		}

		resources, err := k8s.List(c.Request.Context(), cs, c.Param("name"), kind)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resources)
	}
}

func resourceYAMLHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authorizeNamespace(s, c) {
			return
		}
		cs, ok := s.requireCluster(c)
		if !ok {
			return
		}

		kind, err := k8s.ParseKind(c.Param("kind"))
		if err != nil {
			s.writeError(c, err)
			return
		}

		y, err := k8s.GetYAML(c.Request.Context(), cs, c.Param("name"), kind, c.Param("resname"))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.String(http.StatusOK, y)
	}
}

func deleteResourceHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)
		if !authorizeNamespace(s, c) {
			return
		}
		cs, ok := s.requireCluster(c)
		if !ok {
			return
		}

		kind, err := k8s.ParseKind(c.Param("kind"))
		if err != nil {
			s.writeError(c, err)
			return
		}

		if err := k8s.Delete(c.Request.Context(), cs, c.Param("name"), kind, c.Param("resname")); err != nil {
			s.writeError(c, err)
			return
		}

		s.Audit.Record(auditEntry(ident.User.ID, "resource.delete", string(kind), 0,
			c.Param("resname"), "", "namespace="+c.Param("name")))
		c.Status(http.StatusNoContent)
	}
}

func podLogsHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authorizeNamespace(s, c) {
			return
		}
		cs, ok := s.requireCluster(c)
		if !ok {
			return
		}

		tail := int64(100)
		if t := strings.TrimSpace(c.Query("tail")); t != "" {
			if v, err := strconv.ParseInt(t, 10, 64); err == nil && v > 0 {
				tail = v
			}
		}

		lines, err := k8s.GetPodLogs(c.Request.Context(), cs,
			c.Param("name"), c.Param("pod"), c.Query("container"), tail)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"lines": lines})
	}
}
