package contract

import (
	"errors"

	"github.com/rohitroy-github/ico-init/internal/chain"
)

// 具名错误
const (
	NotAuthorizedAsListedProjectOwner = "ICO_ProjectListing_NotAuthorizedAsListedProjectOwner"
	NotAuthorizedAsSuperOwner         = "ICO_ProjectListing_NotAuthorizedAsSuperOwner"

	ERC20InsufficientBalance   = "ERC20InsufficientBalance"
	ERC20InvalidSender         = "ERC20InvalidSender"
	ERC20InvalidReceiver       = "ERC20InvalidReceiver"
	ERC20InvalidSpender        = "ERC20InvalidSpender"
	ERC20InsufficientAllowance = "ERC20InsufficientAllowance"
)

// 用于 errors.Is 匹配的错误值
var (
	ErrNotProjectOwner = &chain.CustomError{Name: NotAuthorizedAsListedProjectOwner}
	ErrNotSuperOwner   = &chain.CustomError{Name: NotAuthorizedAsSuperOwner}

	ErrProjectNotExist        = chain.Revert("Project does not exist")
	ErrTokenAlreadyCreated    = chain.Revert("Token already created for this project")
	ErrOnlyProjectOwnerToken  = chain.Revert("Only the project owner can create a new token")
	ErrOnlyInitialOwner       = chain.Revert("Only the initial owner can call this function")
	ErrListingFeeInsufficient = chain.Revert("Listing fee is not sufficient")
	ErrProjectNotListed       = chain.Revert("Project is not in listed state")
	ErrIncorrectPayment       = chain.Revert("Incorrect payment amount")
	ErrNotEnoughTokens        = chain.Revert("Not enough tokens available")
	ErrZeroAmount             = chain.Revert("Amount must be greater than zero")
)

// IsAuthorizationError 判断是否为权限类的具名错误
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotProjectOwner) || errors.Is(err, ErrNotSuperOwner)
}
