package handler

import (
	"strings"

	"github.com/dhis2-sre/im-dbaas/internal/errdef"
	"github.com/gin-gonic/gin"
	"k8s.io/apimachinery/pkg/util/validation"
)

// GetNameParameter returns the path parameter if it's a valid DNS-1035 label, the format of both
// database cluster and Kubernetes cluster names. Otherwise it records a bad request error.
func GetNameParameter(c *gin.Context, parameter string) (string, bool) {
	name := c.Param(parameter)
	if errs := validation.IsDNS1035Label(name); len(errs) > 0 {
		_ = c.Error(errdef.NewBadRequest("invalid %s %q: %s", parameter, name, strings.Join(errs, ", ")))
		return "", false
	}
	return name, true
}
