package instance

import "github.com/aws/aws-sdk-go/service/ec2"

// GroupIdentifier is the security group shape of a full RunInstances result.
// The stub's empty Result does not reference it yet.
type GroupIdentifier = ec2.GroupIdentifier
