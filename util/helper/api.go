package helper_util

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/echo-cse/model"
)

// GetRetrieveParams reads the rcn, lvl and ofst query parameters. An absent
// lvl yields defaultLevel.
func GetRetrieveParams(c *gin.Context, defaultLevel int) (rcn model.ResultContent, level int, offset int, err error) {
	rcn = model.ResultContent(c.Query("rcn"))
	level, err = strconv.Atoi(c.DefaultQuery("lvl", strconv.Itoa(defaultLevel)))
	if err != nil || level < 0 {
		return "", 0, 0, fmt.Errorf("invalid lvl %q", c.Query("lvl"))
	}
	offset, err = strconv.Atoi(c.DefaultQuery("ofst", "0"))
	if err != nil || offset < 0 {
		return "", 0, 0, fmt.Errorf("invalid ofst %q", c.Query("ofst"))
	}
	return rcn, level, offset, nil
}

// GetResourceType reads the ty query parameter of a create request
func GetResourceType(c *gin.Context) (model.ResourceType, error) {
	raw := c.Query("ty")
	if raw == "" {
		return 0, nil
	}
	ty, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid ty %q", raw)
	}
	return model.ResourceType(ty), nil
}
