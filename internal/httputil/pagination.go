package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParsePagination safely parses and validates offset and limit query parameters.
// It uses default values of 0 for offset and 50 for limit.
// The limit cannot exceed 100.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offsetStr := c.DefaultQuery("offset", "0")
	offset, err = strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("invalid offset parameter: must be a non-negative integer")
	}

	limitStr := c.DefaultQuery("limit", "50")
	limit, err = strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 100 {
		return 0, 0, fmt.Errorf("invalid limit parameter: must be between 1 and 100")
	}

	return offset, limit, nil
}

// ParseBlockRange parses from_block and to_block query parameters. from_block
// defaults to 0; to_block is required and must be >= from_block.
func ParseBlockRange(c *gin.Context) (fromBlock, toBlock int64, err error) {
	fromStr := c.DefaultQuery("from_block", "0")
	fromBlock, err = strconv.ParseInt(fromStr, 10, 64)
	if err != nil || fromBlock < 0 {
		return 0, 0, fmt.Errorf("invalid from_block parameter: must be a non-negative integer")
	}

	toStr := c.Query("to_block")
	if toStr == "" {
		return 0, 0, fmt.Errorf("missing to_block parameter")
	}
	toBlock, err = strconv.ParseInt(toStr, 10, 64)
	if err != nil || toBlock < fromBlock {
		return 0, 0, fmt.Errorf("invalid to_block parameter: must be an integer >= from_block")
	}

	return fromBlock, toBlock, nil
}
