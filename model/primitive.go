// model/primitive.go
package model

// Operation is the requested CRUD(N) operation
type Operation int

const (
	OperationCreate   Operation = 1
	OperationRetrieve Operation = 2
	OperationUpdate   Operation = 3
	OperationDelete   Operation = 4
	OperationNotify   Operation = 5
	OperationDiscover Operation = 6
)

func (o Operation) String() string {
	switch o {
	case OperationCreate:
		return "CREATE"
	case OperationRetrieve:
		return "RETRIEVE"
	case OperationUpdate:
		return "UPDATE"
	case OperationDelete:
		return "DELETE"
	case OperationNotify:
		return "NOTIFY"
	case OperationDiscover:
		return "DISCOVER"
	default:
		return "UNKNOWN"
	}
}

// OperationMask is the accessControlOperations bit set of an ACP rule
type OperationMask int

const (
	MaskCreate   OperationMask = 1
	MaskRetrieve OperationMask = 2
	MaskUpdate   OperationMask = 4
	MaskDelete   OperationMask = 8
	MaskNotify   OperationMask = 16
	MaskDiscover OperationMask = 32
	MaskAll      OperationMask = 63
)

// Mask returns the ACP bit for the operation
func (o Operation) Mask() OperationMask {
	switch o {
	case OperationCreate:
		return MaskCreate
	case OperationRetrieve:
		return MaskRetrieve
	case OperationUpdate:
		return MaskUpdate
	case OperationDelete:
		return MaskDelete
	case OperationNotify:
		return MaskNotify
	case OperationDiscover:
		return MaskDiscover
	default:
		return 0
	}
}

// Allows reports whether every bit of op is granted
func (m OperationMask) Allows(op Operation) bool {
	bit := op.Mask()
	return bit != 0 && m&bit == bit
}

// ResultContent selects the shape of the response content
type ResultContent string

const (
	ResultContentAttributes          ResultContent = "attributes"
	ResultContentNothing             ResultContent = "nothing"
	ResultContentAttributesChildren  ResultContent = "attributes+children"
	ResultContentAttributesChildRefs ResultContent = "attributes+childRefs"
	ResultContentChildRefs           ResultContent = "childRefs"
	ResultContentOriginalResource    ResultContent = "original"
)

// ResponseStatusCode is the oneM2M response status code
type ResponseStatusCode int

const (
	StatusOK                       ResponseStatusCode = 2000
	StatusCreated                  ResponseStatusCode = 2001
	StatusDeleted                  ResponseStatusCode = 2002
	StatusUpdated                  ResponseStatusCode = 2004
	StatusBadRequest               ResponseStatusCode = 4000
	StatusNotFound                 ResponseStatusCode = 4004
	StatusOperationNotAllowed      ResponseStatusCode = 4005
	StatusRequestTimeout           ResponseStatusCode = 4008
	StatusOriginatorHasNoPrivilege ResponseStatusCode = 4103
	StatusConflict                 ResponseStatusCode = 4105
	StatusInternalServerError      ResponseStatusCode = 5000
	StatusTargetNotReachable       ResponseStatusCode = 5103
)

// IsSuccess reports a 2xxx status
func (s ResponseStatusCode) IsSuccess() bool {
	return s >= 2000 && s < 3000
}

// RequestPrimitive is the binding-agnostic inbound request
type RequestPrimitive struct {
	Operation         Operation     `json:"op"`
	From              string        `json:"fr"`
	To                string        `json:"to"`
	RequestIdentifier string        `json:"rqi,omitempty"`
	ResourceType      ResourceType  `json:"ty,omitempty"`
	Content           *Resource     `json:"pc,omitempty"`
	ResultContent     ResultContent `json:"rcn,omitempty"`
	Level             int           `json:"lvl,omitempty"`
	Offset            int           `json:"ofst,omitempty"`
}

// ResponsePrimitive is the binding-agnostic outbound response
type ResponsePrimitive struct {
	StatusCode        ResponseStatusCode `json:"rsc"`
	RequestIdentifier string             `json:"rqi,omitempty"`
	Content           *Resource          `json:"pc,omitempty"`
	Location          string             `json:"location,omitempty"`
	Message           string             `json:"message,omitempty"`
}

// NewResponse starts a response bound to the request identifier
func NewResponse(req *RequestPrimitive, status ResponseStatusCode) *ResponsePrimitive {
	return &ResponsePrimitive{StatusCode: status, RequestIdentifier: req.RequestIdentifier}
}
